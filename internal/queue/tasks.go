package queue

const (
	TypeDocumentIngest = "document:ingest"
)

// DocumentIngestPayload points the worker at a spooled upload.
type DocumentIngestPayload struct {
	OwnerID  int64  `json:"owner_id"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
}
