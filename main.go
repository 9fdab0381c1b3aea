package main

import "github.com/kareemzeiad-ops/kero-feeder/cmd/kero"

func main() {
	kero.Execute()
}
