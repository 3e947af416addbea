package health

import "strings"

// RequestHealth guarda ratios de error en [0,1] o NotApplicable.
type RequestHealth struct {
	ErrorRatio         float64 `json:"errorRatio"`
	InboundErrorRatio  float64 `json:"inboundErrorRatio"`
	OutboundErrorRatio float64 `json:"outboundErrorRatio"`
}

// NoRequests es el RequestHealth sin tráfico observado.
var NoRequests = RequestHealth{
	ErrorRatio:         NotApplicable,
	InboundErrorRatio:  NotApplicable,
	OutboundErrorRatio: NotApplicable,
}

// RequestHealthFromRates deriva los ratios desde tasas de request por código
// de respuesta ("200", "503", "-" para sin respuesta).
func RequestHealthFromRates(inbound, outbound map[string]float64) RequestHealth {
	inErr, inTotal := sumRates(inbound)
	outErr, outTotal := sumRates(outbound)
	return RequestHealth{
		ErrorRatio:         ratio(inErr+outErr, inTotal+outTotal),
		InboundErrorRatio:  ratio(inErr, inTotal),
		OutboundErrorRatio: ratio(outErr, outTotal),
	}
}

func sumRates(rates map[string]float64) (errs, total float64) {
	for code, rate := range rates {
		if rate <= 0 {
			continue
		}
		total += rate
		if isErrorCode(code) {
			errs += rate
		}
	}
	return errs, total
}

func isErrorCode(code string) bool {
	code = strings.TrimSpace(code)
	return code == "-" || strings.HasPrefix(code, "4") || strings.HasPrefix(code, "5")
}

func ratio(errs, total float64) float64 {
	if total <= 0 {
		return NotApplicable
	}
	return errs / total
}
