// Command quizctl plans and inspects adaptive quiz difficulty offline and
// checks question bank files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
