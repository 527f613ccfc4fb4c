package support

type PrepareSupportReq struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}
