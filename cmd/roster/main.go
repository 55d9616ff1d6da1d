// Package main is the entry point for the roster character service.
//
// @title          Roster API
// @version        1.0
// @description    Character roster backend: CRUD over the Characters table plus health endpoints.
// @host           localhost:8080
// @BasePath       /
// @schemes        http https
package main

func main() {
	Execute()
}
