package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra/doc"

	"github.com/yoanbernabeu/rtk/cli"
)

func main() {
	outputDir := flag.String("out", "./docs/commands", "directory receiving the generated markdown")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal("create output directory", "dir", *outputDir, "err", err)
	}

	rootCmd := cli.GetRootCmd()
	rootCmd.DisableAutoGenTag = true

	// Front matter for the docs site.
	filePrepender := func(filename string) string {
		name := filepath.Base(filename)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		name = strings.ReplaceAll(name, "_", " ")

		title := name
		if title == "rtk" {
			title = "rtk (root)"
		}
		return "---\ntitle: " + title + "\ndescription: CLI reference for " + name + "\n---\n\n"
	}

	linkHandler := func(name string) string {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		return "/rtk/commands/" + strings.ToLower(base) + "/"
	}

	if err := doc.GenMarkdownTreeCustom(rootCmd, *outputDir, filePrepender, linkHandler); err != nil {
		log.Fatal("generate documentation", "err", err)
	}
	log.Info("documentation generated", "dir", *outputDir)
}
