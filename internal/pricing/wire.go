package pricing

// PriceRequest is the JSON body sent to a remote pricing service over HTTP
// or NATS. Product may be omitted when the service owns a catalog that
// knows Configuration.ProductID.
type PriceRequest struct {
	Configuration Configuration `json:"configuration"`
	Product       *Product      `json:"product,omitempty"`
}

// PriceResponse is the JSON reply of a remote pricing service. A non-empty
// Error marks a failed calculation; the other fields are then unset.
type PriceResponse struct {
	Breakdown      *Breakdown `json:"breakdown,omitempty"`
	FormattedTotal string     `json:"formatted_total,omitempty"`
	RequestID      string     `json:"request_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	Code           string     `json:"code,omitempty"`
	Retryable      bool       `json:"retryable,omitempty"`
}

// NewPriceResponse converts a Result into its wire form.
func NewPriceResponse(r Result) PriceResponse {
	bd := r.Breakdown.Clone()
	return PriceResponse{Breakdown: &bd, FormattedTotal: r.FormattedTotal, RequestID: r.RequestID}
}

// Result converts a successful wire reply into a Result.
func (r PriceResponse) Result() Result {
	out := Result{FormattedTotal: r.FormattedTotal, RequestID: r.RequestID}
	if r.Breakdown != nil {
		out.Breakdown = r.Breakdown.Clone()
	}
	return out
}
