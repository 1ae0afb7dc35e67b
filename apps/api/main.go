// Command api serves the enrollment portal HTTP API.
package main

import (
	"log"
)

func main() {
	startWithDig()
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
