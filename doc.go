/*
Package optifuse is a frontend asset optimization library, which converts
raster images, vector images and font files into compact, compatible encoded
forms: WebP with an adaptive quality search plus an interlaced fallback for
images, minified markup for SVG, and unicode-range based WOFF/WOFF2 subsets
with generated @font-face rules for fonts.

The package provides a command line interface, supporting various flags for
the different asset types. To check the supported commands type:

	$ optifuse --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"os"

		"github.com/optifuse/optifuse"
	)

	func main() {
		p := optifuse.NewProcessor()

		created, err := p.ProcessFile("logo.png", "dist")
		if err != nil {
			fmt.Printf("Error optimizing the asset: %s", err.Error())
			os.Exit(1)
		}
		for _, f := range created {
			fmt.Println(f)
		}
	}
*/
package optifuse
