package main

import "webuser/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
