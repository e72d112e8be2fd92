package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestRunAccumulation(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	body := `{
		"initialType": "btc",
		"initialBtc": "0.1",
		"monthlyContribution": "10000",
		"years": "5",
		"variant": "standard",
		"exchangeRate": "150",
		"inflationRate": "0",
		"asOfYear": 2025
	}`

	w := serve(t, router, http.MethodPost, "/api/v1/simulations/accumulation", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result struct {
		AsOfYear int `json:"asOfYear"`
		Records  []struct {
			Year    int     `json:"year"`
			BTCHeld float64 `json:"btcHeld"`
		} `json:"records"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.AsOfYear != 2025 {
		t.Errorf("asOfYear = %d, want 2025", result.AsOfYear)
	}
	if len(result.Records) != 26 {
		t.Fatalf("records = %d, want 26", len(result.Records))
	}
	if result.Records[0].Year != 2025 {
		t.Errorf("first year = %d, want 2025", result.Records[0].Year)
	}
	if result.Records[0].BTCHeld <= 0.1 {
		t.Errorf("first btcHeld = %v, want > 0.1", result.Records[0].BTCHeld)
	}
}

func TestRunAccumulationUsesServerYear(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	body := `{"initialType":"btc","initialBtc":"0","monthlyContribution":"1000","years":"1","variant":"","exchangeRate":"150","inflationRate":"0"}`

	w := serve(t, router, http.MethodPost, "/api/v1/simulations/accumulation", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var result struct {
		AsOfYear int `json:"asOfYear"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.AsOfYear != 2025 {
		t.Errorf("asOfYear = %d, want server year 2025", result.AsOfYear)
	}
}

func TestRunAccumulationValidation(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	body := `{"initialType":"btc","initialBtc":"-1","monthlyContribution":"abc","years":"0","variant":"standard","exchangeRate":"150","inflationRate":"0"}`

	w := serve(t, router, http.MethodPost, "/api/v1/simulations/accumulation", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	var result struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"initialBtc", "monthlyContribution", "years"} {
		if _, ok := result.Errors[field]; !ok {
			t.Errorf("errors missing %q: %v", field, result.Errors)
		}
	}
}

func TestRunSimulationRejectsAsOfYearOutsideHorizon(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"accumulation max int", "/api/v1/simulations/accumulation",
			`{"initialType":"btc","initialBtc":"0","monthlyContribution":"1000","years":"1","variant":"standard","exchangeRate":"150","inflationRate":"0","asOfYear":9223372036854775807}`},
		{"accumulation before genesis", "/api/v1/simulations/accumulation",
			`{"initialType":"btc","initialBtc":"0","monthlyContribution":"1000","years":"1","variant":"standard","exchangeRate":"150","inflationRate":"0","asOfYear":1999}`},
		{"decumulation past horizon", "/api/v1/simulations/decumulation",
			`{"initialBtc":"1","startYear":"2030","variant":"standard","policy":{"type":"percentage","rate":"4"},"taxRate":"20","exchangeRate":"150","inflationRate":"0","asOfYear":2051}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, router, http.MethodPost, tt.target, tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
			}
			var result struct {
				Errors map[string]string `json:"errors"`
			}
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, ok := result.Errors["asOfYear"]; !ok {
				t.Errorf("errors missing asOfYear: %v", result.Errors)
			}
		})
	}
}

func TestRunDecumulation(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	body := `{
		"initialBtc": "1",
		"startYear": "2030",
		"variant": "standard",
		"policy": {"type": "percentage", "rate": "4"},
		"taxRate": "20",
		"exchangeRate": "150",
		"inflationRate": "0",
		"asOfYear": 2025
	}`

	w := serve(t, router, http.MethodPost, "/api/v1/simulations/decumulation", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result struct {
		Records []struct {
			Year       int             `json:"year"`
			Withdrawal json.RawMessage `json:"withdrawal"`
			Phase      string          `json:"phase"`
		} `json:"records"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Records) == 0 {
		t.Fatal("no records")
	}
	first := result.Records[0]
	if first.Year != 2025 || string(first.Withdrawal) != "null" {
		t.Errorf("first record = %+v, want 2025 with null withdrawal", first)
	}
}

func TestRunDecumulationComputationError(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	body := `{
		"initialBtc": "0.01",
		"startYear": "2025",
		"variant": "standard",
		"policy": {"type": "fixed", "amount": "1000000"},
		"taxRate": "20",
		"exchangeRate": "150",
		"inflationRate": "0",
		"asOfYear": 2025
	}`

	w := serve(t, router, http.MethodPost, "/api/v1/simulations/decumulation", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	var result struct {
		Year  int    `json:"year"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Year != 2025 || result.Error == "" {
		t.Errorf("result = %+v, want year 2025 and a message", result)
	}
}

func TestRunSimulationBadJSON(t *testing.T) {
	router := newTestRouter(&mockMarket{}, "")
	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed", "/api/v1/simulations/accumulation", `{"initialBtc":`},
		{"unknown field", "/api/v1/simulations/decumulation", `{"initialBtc":"1","bogus":true}`},
		{"number instead of string", "/api/v1/simulations/accumulation", `{"initialBtc":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, router, http.MethodPost, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
