package main

import "github.com/goplus/hpkg/cmd/hpkg/internal"

func main() {
	internal.Execute()
}
