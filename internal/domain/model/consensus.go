package model

// ExpertOpinion is one expert's vote on a candidate causal pair.
type ExpertOpinion struct {
	Role       string  `json:"role"`
	Vote       int     `json:"vote"`
	Polarity   int     `json:"polarity"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// JudgeDecision is the final ruling over the retained expert opinions.
type JudgeDecision struct {
	Edge       int     `json:"edge"`
	Polarity   int     `json:"polarity"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// ConsensusResult carries the final round's expert opinions and the judge decision.
type ConsensusResult struct {
	Experts []ExpertOpinion `json:"experts"`
	Judge   JudgeDecision   `json:"judge"`
}
