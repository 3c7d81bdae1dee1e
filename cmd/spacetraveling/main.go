// Command spacetraveling builds and serves a blog backed by a Prismic
// repository.
package main

// version is set at build time via ldflags.
var version = "dev"

func main() {
	Execute()
}
