package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/brensch/awwbot/config"
	"gopkg.in/yaml.v3"
)

// Writes a config template with every default filled in, so operators only
// have to add credentials.
func main() {
	out := flag.String("out", "./config.example.yaml", "where to write the template")
	flag.Parse()

	slog.Info("generating config template", "out", *out)

	// No files: only defaults plus whatever APP_ vars are already exported.
	conf, err := config.Read(nil)
	if err != nil {
		slog.Error("failed to read defaults", "err", err)
		os.Exit(1)
	}

	var doc yaml.Node
	if err := doc.Encode(conf); err != nil {
		slog.Error("failed to encode config template", "err", err)
		os.Exit(1)
	}
	annotate(&doc)

	confYAML, err := yaml.Marshal(&doc)
	if err != nil {
		slog.Error("failed to marshal config template", "err", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, confYAML, 0o644); err != nil {
		slog.Error("failed to write config template", "err", err)
		os.Exit(1)
	}
}

// sectionComments are written above the matching top-level keys.
var sectionComments = map[string]string{
	"database": "# duckdb keeps state on local disk. The Cloud Functions host loses\n" +
		"# that disk between instances and requires driver: postgres with a dsn.",
}

func annotate(doc *yaml.Node) {
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if c, ok := sectionComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = c
		}
	}
}
