package main

import (
	"flag"
	"log"
	"os"

	"github.com/macropower/pick/api/v1beta1/signalsets"
	"github.com/macropower/pick/pkg/yaml"
)

var outFile = flag.String("o", "schema.json", "Output file for the generated schema")

func main() {
	flag.Parse()

	gen := yaml.NewSchemaGenerator(signalsets.New(),
		"github.com/macropower/pick",
		"../../..",
	)

	jsData, err := gen.Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.WriteFile(*outFile, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
