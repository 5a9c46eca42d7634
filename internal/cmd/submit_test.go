package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDocumentJSON = `{
  "participantInn": "7701234567",
  "docId": "doc-1",
  "docStatus": "NEW",
  "docType": "LP_INTRODUCE_GOODS",
  "importRequest": true,
  "ownerInn": "7701234567",
  "producerInn": "7707654321",
  "productionDate": "2026-01-15",
  "productionType": "OWN_PRODUCTION",
  "products": [{"uitCode": "010460", "tnvedCode": "6403"}],
  "regDate": "2026-01-16",
  "regNumber": "R-1"
}`

const sampleDocumentYAML = `participantInn: "7701234567"
docId: doc-2
docType: LP_INTRODUCE_GOODS
importRequest: false
products:
  - uitCode: "010461"
    tnvedCode: "6404"
  - uitCode: "010462"
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadDocumentJSON(t *testing.T) {
	doc, err := readDocument(writeTempFile(t, "doc.json", sampleDocumentJSON), nil)
	require.NoError(t, err)
	require.Equal(t, "doc-1", doc.DocID)
	require.True(t, doc.ImportRequest)
	require.Len(t, doc.Products, 1)
	require.Equal(t, "010460", doc.Products[0].UitCode)
}

func TestReadDocumentYAML(t *testing.T) {
	doc, err := readDocument(writeTempFile(t, "doc.yaml", sampleDocumentYAML), nil)
	require.NoError(t, err)
	require.Equal(t, "doc-2", doc.DocID)
	require.Equal(t, "7701234567", doc.ParticipantInn)
	require.Len(t, doc.Products, 2)
	require.Equal(t, "010462", doc.Products[1].UitCode)
}

func TestReadDocumentStdin(t *testing.T) {
	doc, err := readDocument("-", strings.NewReader(sampleDocumentJSON))
	require.NoError(t, err)
	require.Equal(t, "LP_INTRODUCE_GOODS", doc.DocType)
}

func TestReadDocumentRejectsUnknownFields(t *testing.T) {
	_, err := readDocument(writeTempFile(t, "doc.json", `{"docId": "x", "extra": 1}`), nil)
	require.Error(t, err)

	_, err = readDocument(writeTempFile(t, "doc.yml", "docId: x\nextra: 1\n"), nil)
	require.Error(t, err)
}

func TestReadDocumentErrors(t *testing.T) {
	_, err := readDocument("  ", nil)
	require.ErrorContains(t, err, "--file is required")

	_, err = readDocument(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.ErrorContains(t, err, "read document")
}

func TestReadSignature(t *testing.T) {
	sig, err := readSignature("inline-sig", "")
	require.NoError(t, err)
	require.Equal(t, "inline-sig", sig)

	sig, err = readSignature("", writeTempFile(t, "doc.sig", "c2lnbmVk\r\n"))
	require.NoError(t, err)
	require.Equal(t, "c2lnbmVk", sig)

	sig, err = readSignature("", writeTempFile(t, "keep.sig", "line1\n\n"))
	require.NoError(t, err)
	require.Equal(t, "line1\n", sig)

	_, err = readSignature("a", "b.sig")
	require.ErrorContains(t, err, "mutually exclusive")

	_, err = readSignature("", "")
	require.ErrorContains(t, err, "required")
}
