// Package sdk provides an HTTP client for a remote evidex decision service.
//
// The client mirrors the service's JSON API: Decide submits a query and
// returns a decision (ok, refuse, or ambiguous), and Select resolves a
// clarification choice against a prior ambiguous decision.
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//	dec, _ := client.Decide(ctx, "What is the maximum pressure rating for the MX90?")
//	if dec.Status == sdk.StatusAmbiguous {
//	    dec, _ = client.Select(ctx, dec, dec.Options[0].ID)
//	}
//
// For in-process use without an HTTP hop, embed the engine directly via the
// root evidex package instead.
package sdk
