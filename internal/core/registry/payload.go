package registry

import (
	"encoding/json"

	"github.com/docgate/docgate/internal/core"
)

// documentPayload is the registry "create document" body. Field order follows
// the registry contract: scalars, products, signature. No field is omitted.
type documentPayload struct {
	ParticipantInn string           `json:"participantInn"`
	DocID          string           `json:"docId"`
	DocStatus      string           `json:"docStatus"`
	DocType        string           `json:"docType"`
	ImportRequest  bool             `json:"importRequest"`
	OwnerInn       string           `json:"ownerInn"`
	ProducerInn    string           `json:"producerInn"`
	ProductionDate string           `json:"productionDate"`
	ProductionType string           `json:"productionType"`
	RegDate        string           `json:"regDate"`
	RegNumber      string           `json:"regNumber"`
	Products       []productPayload `json:"products"`
	Signature      string           `json:"signature"`
}

type productPayload struct {
	CertificateDocument       string `json:"certificateDocument"`
	CertificateDocumentDate   string `json:"certificateDocumentDate"`
	CertificateDocumentNumber string `json:"certificateDocumentNumber"`
	OwnerInn                  string `json:"ownerInn"`
	ProducerInn               string `json:"producerInn"`
	ProductionDate            string `json:"productionDate"`
	TnvedCode                 string `json:"tnvedCode"`
	UitCode                   string `json:"uitCode"`
	UituCode                  string `json:"uituCode"`
}

// BuildPayload serializes a document and its signature into the request body.
func BuildPayload(doc core.Document, signature string) ([]byte, error) {
	body := documentPayload{
		ParticipantInn: doc.ParticipantInn,
		DocID:          doc.DocID,
		DocStatus:      doc.DocStatus,
		DocType:        doc.DocType,
		ImportRequest:  doc.ImportRequest,
		OwnerInn:       doc.OwnerInn,
		ProducerInn:    doc.ProducerInn,
		ProductionDate: doc.ProductionDate,
		ProductionType: doc.ProductionType,
		RegDate:        doc.RegDate,
		RegNumber:      doc.RegNumber,
		Products:       make([]productPayload, 0, len(doc.Products)),
		Signature:      signature,
	}

	for _, p := range doc.Products {
		body.Products = append(body.Products, productPayload{
			CertificateDocument:       p.CertificateDocument,
			CertificateDocumentDate:   p.CertificateDocumentDate,
			CertificateDocumentNumber: p.CertificateDocumentNumber,
			OwnerInn:                  p.OwnerInn,
			ProducerInn:               p.ProducerInn,
			ProductionDate:            p.ProductionDate,
			TnvedCode:                 p.TnvedCode,
			UitCode:                   p.UitCode,
			UituCode:                  p.UituCode,
		})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &core.EncodingError{Err: err}
	}
	return data, nil
}
