// Command listing-crawler fetches business listings and stores them by data source.
package main

import "github.com/JakeFAU/listing-crawler/cmd"

func main() {
	cmd.Execute()
}
