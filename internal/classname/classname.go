// Package classname turns raw file-system and archive-entry names into dotted
// class names and splits class names into package and simple name.
//
// All functions are pure and never fail.
package classname

import "strings"

// Unpackaged is the package name reported for classes in the default package.
const Unpackaged = "<unpackaged>"

const (
	classPrefix = "class "
	classSuffix = ".class"
)

// Canonicalize maps both path separators to '.', then strips a leading
// "class " and a trailing ".class".
//
//	com/acme/Foo.class   -> com.acme.Foo
//	com\acme\Foo.class   -> com.acme.Foo
//	class com.acme.Foo   -> com.acme.Foo
func Canonicalize(raw string) string {
	name := strings.NewReplacer("/", ".", `\`, ".").Replace(raw)
	name = strings.TrimPrefix(name, classPrefix)
	return strings.TrimSuffix(name, classSuffix)
}

// Split returns the package and simple name of a class. Names without a dot
// belong to Unpackaged.
func Split(name string) (pkg, simple string) {
	name = Canonicalize(name)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return Unpackaged, name
	}
	return name[:i], name[i+1:]
}

// Package is shorthand for the first result of Split.
func Package(name string) string {
	pkg, _ := Split(name)
	return pkg
}

// IsClassFile reports whether raw ends in ".class", ignoring case.
func IsClassFile(raw string) bool {
	return hasSuffixFold(raw, classSuffix)
}

// IsArchiveFile reports whether raw ends in ".jar" or ".zip", ignoring case.
func IsArchiveFile(raw string) bool {
	return hasSuffixFold(raw, ".jar") || hasSuffixFold(raw, ".zip")
}

// IsInnerClass reports whether name refers to a nested or anonymous class.
func IsInnerClass(name string) bool {
	return strings.Contains(name, "$")
}

// RemoveInnerClassNames returns a new slice holding the names of names that
// are not inner classes. names is left untouched.
func RemoveInnerClassNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !IsInnerClass(n) {
			out = append(out, n)
		}
	}
	return out
}

// hasSuffixFold is strings.HasSuffix with ASCII case folding.
func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
