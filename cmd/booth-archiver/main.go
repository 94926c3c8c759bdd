package main

import cmd "github.com/rohmanhakim/booth-archiver/internal/cli"

func main() {
	cmd.Execute()
}
