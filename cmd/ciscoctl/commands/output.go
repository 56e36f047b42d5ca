package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/netdevops/ciscoctl/internal/constants"
	"github.com/netdevops/ciscoctl/internal/rest"
)

const defaultJSONIndent = "  "

// render writes data as JSON or YAML, or calls fill to build the table.
func render(w io.Writer, data interface{}, fill func(table *tablewriter.Table)) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", defaultJSONIndent)

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()

		return encoder.Encode(data)
	default:
		table := tablewriter.NewWriter(w)
		fill(table)

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// renderResult prints a raw API answer: indented JSON when the body is JSON,
// the text as is otherwise.
func renderResult(w io.Writer, result *rest.Result) error {
	err := result.Err()
	if err != nil {
		return err
	}

	if !json.Valid(result.Body) {
		_, err = fmt.Fprintln(w, result.Text())

		return err
	}

	if viper.GetString("output") == constants.FormatYAML {
		var data interface{}

		err = json.Unmarshal(result.Body, &data)
		if err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		encoder := yaml.NewEncoder(w)
		defer encoder.Close()

		return encoder.Encode(data)
	}

	var indented bytes.Buffer

	err = json.Indent(&indented, result.Body, "", defaultJSONIndent)
	if err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}

	_, err = fmt.Fprintln(w, indented.String())

	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return constants.NotAvailable
	}

	return t.Local().Format(constants.TimeFormat)
}

func orNotAvailable(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
