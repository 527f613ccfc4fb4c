package dispute

type RecoveryAttemptReq struct {
	Action      string `json:"action" validate:"required"`
	AmountMinor int64  `json:"amount_minor" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Note        string `json:"note"`
}
