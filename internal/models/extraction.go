package models

// ParsedCandidate is the structured result of CV extraction. FaceBox is
// [yMin, xMin, yMax, xMax] on a 0-1000 scale relative to the source image.
type ParsedCandidate struct {
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Age            int       `json:"age"`
	Skills         []string  `json:"skills"`
	Summary        string    `json:"summary"`
	CurrentCompany string    `json:"current_company"`
	CurrentRole    string    `json:"current_role"`
	SalaryBand     string    `json:"salary_band"`
	Benefits       []string  `json:"benefits"`
	FaceBox        []float64 `json:"face_box,omitempty"`

	Portrait   []byte `json:"-"`
	CV         []byte `json:"-"`
	CVMimeType string `json:"-"`
}

// FitEvaluation rates a candidate against a job. Degraded marks a fallback
// value produced when the model could not score.
type FitEvaluation struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
	Degraded  bool   `json:"degraded,omitempty"`
}
