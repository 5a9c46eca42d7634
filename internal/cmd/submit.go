package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/output"
)

var (
	submitFile          string
	submitSignature     string
	submitSignatureFile string
	submitOutput        string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a signed document to the registry",
	Long: `Submit one document to the registry's create-document endpoint.

The document is read from a JSON or YAML file (use "-" for JSON on stdin).
The signature is passed through untouched; docgate never inspects it.

Each invocation admits through a fresh limiter; use "docgate serve" to
share one window between many submissions.`,
	Example: `  docgate submit --file doc.json --signature-file doc.sig
  docgate submit --file doc.yaml --signature "$SIG" --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(submitOutput)
		if err != nil {
			return err
		}

		doc, err := readDocument(submitFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		signature, err := readSignature(submitSignature, submitSignatureFile)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gw, err := newGateway(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer gw.Close() // nolint:errcheck // best-effort cleanup

		receipt, submitErr := gw.dispatcher.Dispatch(cmd.Context(), *doc, signature)
		if receipt == nil {
			return submitErr
		}

		outPath, err := resolveOutputPath(cmd, "submit."+receipt.Attempt.ID, format)
		if err != nil {
			return err
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatAttempt(receipt.Attempt, receipt.Result)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
			return err
		}
		return submitErr
	},
}

// readDocument decodes a document file. The format follows the extension:
// .yaml/.yml are YAML, anything else is JSON. Unknown fields are rejected.
func readDocument(path string, stdin io.Reader) (*core.Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("--file is required")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- user-selected document file
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc core.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", path, err)
		}
	}
	return &doc, nil
}

// readSignature returns the inline signature or the contents of file, with
// one trailing newline stripped. Exactly one source must be given.
func readSignature(inline, file string) (string, error) {
	file = strings.TrimSpace(file)
	switch {
	case inline != "" && file != "":
		return "", errors.New("--signature and --signature-file are mutually exclusive")
	case inline != "":
		return inline, nil
	case file != "":
		data, err := os.ReadFile(file) // #nosec G304 -- user-selected signature file
		if err != nil {
			return "", fmt.Errorf("read signature: %w", err)
		}
		signature := strings.TrimSuffix(string(data), "\n")
		return strings.TrimSuffix(signature, "\r"), nil
	default:
		return "", errors.New("one of --signature or --signature-file is required")
	}
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "Document file (.json, .yaml, or - for stdin)")
	submitCmd.Flags().StringVar(&submitSignature, "signature", "", "Detached document signature")
	submitCmd.Flags().StringVar(&submitSignatureFile, "signature-file", "", "File containing the document signature")
	submitCmd.Flags().StringVar(&submitOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	submitCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	submitCmd.Flags().String("out-dir", "", "Write output to a directory")
	_ = submitCmd.MarkFlagRequired("file")
}
