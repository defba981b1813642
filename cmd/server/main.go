package main

import "payadmin/internal/app/server"

func main() {
	server.Run()
}
