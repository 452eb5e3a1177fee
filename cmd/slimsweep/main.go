package main

import app "slimsweep/internal/app"

func main() {
	app.Run()
}
