package domain

// Artifact kinds checked by the submission gate.
const (
	ArtifactDraft            = "draft"
	ArtifactFinalDocument    = "final_document"
	ArtifactPlagiarismReport = "plagiarism_report"
	ArtifactAIReport         = "ai_report"
)

type Artifact struct {
	ID         int64  `db:"id"`
	OrderID    int64  `db:"order_id"`
	Kind       string `db:"kind"`
	FileName   string `db:"file_name"`
	UploadedBy int64  `db:"uploaded_by"`
	CreatedAt  int64  `db:"created_at"`
}
