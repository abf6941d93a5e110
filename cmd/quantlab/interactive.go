package main

import (
	"fmt"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/tathienbao/quant-lab/internal/strategy"
)

// selectStrategy shows an interactive menu of registered strategies,
// adapted from the teacher's promptui-based selectStrategy menu
// (cmd/bot/main.go): the teacher's menu was a hardcoded list of five
// backtested presets with baked-in return/win-rate figures; this one is
// generated from strategy.Names(), the real constructor registry, so it
// never drifts from what New actually supports.
func selectStrategy() (string, error) {
	names := strategy.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("no strategies registered")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | white }}",
		Selected: "✔ Strategy: {{ . | green }}",
	}
	prompt := promptui.Select{
		Label:     "Select a strategy",
		Items:     names,
		Templates: templates,
		Size:      len(names),
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return names[idx], nil
}

// selectDataFile shows an interactive menu over CSV files found under dir.
func selectDataFile(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil || len(files) == 0 {
		return "", fmt.Errorf("no CSV files found in %s", dir)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | white }}",
		Selected: "✔ Data file: {{ . | green }}",
	}
	prompt := promptui.Select{Label: "Select a data file", Items: names, Templates: templates, Size: len(names)}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return files[idx], nil
}
