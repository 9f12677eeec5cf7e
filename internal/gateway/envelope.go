package gateway

// protocolName and engineName identify this gateway in the envelope
// header that wraps every response.
const (
	protocolName = "CTP-T"
	protocolVer  = "1.0"
	engineName   = "trading-core-gateway"
)

// CTPHeader is the envelope header attached to every gateway response.
type CTPHeader struct {
	Protocol string `json:"protocol"`
	Version  string `json:"version"`
	Trit     string `json:"trit"`
	Engine   string `json:"engine"`
}

// wrapCTP wraps a response payload with the CTP header. trit should be
// one of "△", "○", "▽"; callers that have no trit-bearing result use
// "○" (neutral) by convention.
func wrapCTP(trit string, payload map[string]any) map[string]any {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["ctp"] = CTPHeader{
		Protocol: protocolName,
		Version:  protocolVer,
		Trit:     trit,
		Engine:   engineName,
	}
	return payload
}
