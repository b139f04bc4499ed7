// Package main provides the classpath-index CLI, which maps a classpath of
// class directories and archives and answers package queries against it.
//
// Usage:
//
//	classpath-index packages            -c lib/app.jar -c build/classes
//	classpath-index classes com.acme    --config classpath.yaml
//	classpath-index source com.acme.Main --size
//	classpath-index diff com.acme       --left old.jar --right new.jar
//	classpath-index export out.zip      -c lib/app.jar
//
// Without --classpath or --config the entries of $CLASSPATH are used.
// Exit status is 1 on errors and 2 on usage errors.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, root.UsageString())
			return 2
		}
		return 1
	}
	return 0
}
