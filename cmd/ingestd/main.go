package main

import (
	"github.com/treadline/invoice-ingest-service/internal/cli"
)

func main() {
	cli.Execute()
}
