package scraper

// Payload is the minimal request body the availability API accepts
type Payload struct {
	Index              int               `json:"index"`
	PageSize           int               `json:"pgSize"`
	TemplateID         int               `json:"templateID"`
	Filters            map[string]string `json:"filters"`
	IsDownload         bool              `json:"isDownload"`
	NumberOfFieldsView int               `json:"NumberOfFieldsView"`
}

// EnvelopedPayload is the older request shape: the same fields wrapped under
// "data" together with paging and ownership identifiers.
type EnvelopedPayload struct {
	Data EnvelopeData `json:"data"`
}

type EnvelopeData struct {
	Payload
	PageNo   int `json:"pageNo"`
	UserID   int `json:"userID"`
	ParentID int `json:"parentID"`
}

// PayloadOptions tunes the request bodies
type PayloadOptions struct {
	PageSize   int
	TemplateID int
	Category   string
}

// DefaultPayloadOptions matches the public course listing
func DefaultPayloadOptions() PayloadOptions {
	return PayloadOptions{
		PageSize:   200,
		TemplateID: 3,
		Category:   "Mountaineering",
	}
}

func (o PayloadOptions) minimal() Payload {
	return Payload{
		Index:              1,
		PageSize:           o.PageSize,
		TemplateID:         o.TemplateID,
		Filters:            map[string]string{"Category Name": o.Category},
		IsDownload:         false,
		NumberOfFieldsView: 50,
	}
}

func (o PayloadOptions) enveloped() EnvelopedPayload {
	return EnvelopedPayload{
		Data: EnvelopeData{
			Payload:  o.minimal(),
			PageNo:   1,
			UserID:   0,
			ParentID: 0,
		},
	}
}
