package main

import (
	"fmt"
	"os"

	"github.com/zalepa/escolas/cmd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "login":
		cmd.Login(os.Args[2:])
	case "register":
		cmd.Register(os.Args[2:])
	case "logout":
		cmd.Logout(os.Args[2:])
	case "status":
		cmd.Status(os.Args[2:])
	case "schools":
		cmd.Schools(os.Args[2:])
	case "viz":
		cmd.Viz(os.Args[2:])
	case "web":
		cmd.Web(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: escolas <command>

Commands:
  login      Sign in to the schools API
  register   Create an account on the schools API
  logout     Forget the stored session token
  status     Show whether a session token is stored
  schools    List schools as a table (and export JSON/CSV)
  viz        Summarize schools by dependency and municipality
  web        Start the web dashboard
`)
}
