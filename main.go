package main

import "github.com/recuperafly/whatsapp-campaign-console/cmd"

func main() {
	cmd.Execute()
}
