package main

import "github.com/sanimiftah/ngamumule-platform-sub000/cmd"

func main() {
	cmd.Execute()
}
