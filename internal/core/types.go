package core

import "time"

// Document is a registry "create document" request as produced by the caller.
// It carries no behavior; the submitter maps it field for field.
type Document struct {
	ParticipantInn string    `json:"participantInn" yaml:"participantInn"`
	DocID          string    `json:"docId" yaml:"docId"`
	DocStatus      string    `json:"docStatus" yaml:"docStatus"`
	DocType        string    `json:"docType" yaml:"docType"`
	ImportRequest  bool      `json:"importRequest" yaml:"importRequest"`
	OwnerInn       string    `json:"ownerInn" yaml:"ownerInn"`
	ProducerInn    string    `json:"producerInn" yaml:"producerInn"`
	ProductionDate string    `json:"productionDate" yaml:"productionDate"`
	ProductionType string    `json:"productionType" yaml:"productionType"`
	Products       []Product `json:"products" yaml:"products"`
	RegDate        string    `json:"regDate" yaml:"regDate"`
	RegNumber      string    `json:"regNumber" yaml:"regNumber"`
}

// Product is a single goods entry of a Document. Order within
// Document.Products is preserved on the wire.
type Product struct {
	CertificateDocument       string `json:"certificateDocument" yaml:"certificateDocument"`
	CertificateDocumentDate   string `json:"certificateDocumentDate" yaml:"certificateDocumentDate"`
	CertificateDocumentNumber string `json:"certificateDocumentNumber" yaml:"certificateDocumentNumber"`
	OwnerInn                  string `json:"ownerInn" yaml:"ownerInn"`
	ProducerInn               string `json:"producerInn" yaml:"producerInn"`
	ProductionDate            string `json:"productionDate" yaml:"productionDate"`
	TnvedCode                 string `json:"tnvedCode" yaml:"tnvedCode"`
	UitCode                   string `json:"uitCode" yaml:"uitCode"`
	UituCode                  string `json:"uituCode" yaml:"uituCode"`
}

// SubmissionResult is returned for a submission the registry accepted.
type SubmissionResult struct {
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"-"`
}

// Outcome classifies a submission attempt.
type Outcome string

const (
	OutcomeSubmitted      Outcome = "submitted"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeEncodingError  Outcome = "encoding_error"
	OutcomeFailed         Outcome = "failed"
)

// Attempt is the journal record for one submission attempt. It holds metadata
// only; document contents and signatures are not kept.
type Attempt struct {
	ID           string    `json:"id"`
	DocID        string    `json:"doc_id,omitempty"`
	DocType      string    `json:"doc_type,omitempty"`
	ProductCount int       `json:"product_count"`
	Outcome      Outcome   `json:"outcome"`
	StatusCode   int       `json:"status_code,omitempty"`
	Message      string    `json:"message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration reports how long the attempt took.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.Before(a.StartedAt) {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}
