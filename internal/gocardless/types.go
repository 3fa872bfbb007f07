package gocardless

// tokenPair is the response of POST /token/new/.
type tokenPair struct {
	Access         string `json:"access"`
	AccessExpires  int64  `json:"access_expires"`
	Refresh        string `json:"refresh"`
	RefreshExpires int64  `json:"refresh_expires"`
}

// accessToken is the response of POST /token/refresh/.
type accessToken struct {
	Access        string `json:"access"`
	AccessExpires int64  `json:"access_expires"`
}

// errorBody is the API's error envelope.
type errorBody struct {
	Summary    string `json:"summary"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// Institution is a bank supported by the API.
type Institution struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	BIC                  string   `json:"bic,omitempty"`
	TransactionTotalDays string   `json:"transaction_total_days,omitempty"`
	Countries            []string `json:"countries,omitempty"`
	Logo                 string   `json:"logo,omitempty"`
}

// RequisitionRequest is the body of POST /requisitions/.
type RequisitionRequest struct {
	Redirect      string `json:"redirect"`
	InstitutionID string `json:"institution_id"`
	Reference     string `json:"reference"`
	UserLanguage  string `json:"user_language"`
}

// Requisition links end-user bank accounts to the API.
type Requisition struct {
	ID                string   `json:"id"`
	Created           string   `json:"created,omitempty"`
	Redirect          string   `json:"redirect"`
	Status            string   `json:"status"`
	InstitutionID     string   `json:"institution_id"`
	Agreement         string   `json:"agreement,omitempty"`
	Reference         string   `json:"reference"`
	Accounts          []string `json:"accounts"`
	UserLanguage      string   `json:"user_language,omitempty"`
	Link              string   `json:"link"`
	SSN               *string  `json:"ssn"`
	AccountSelection  bool     `json:"account_selection"`
	RedirectImmediate bool     `json:"redirect_immediate"`
}

// Amount is a monetary value as returned by the API.
type Amount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Balance is one entry of an account's balances.
type Balance struct {
	BalanceAmount      Amount `json:"balanceAmount"`
	BalanceType        string `json:"balanceType"`
	ReferenceDate      string `json:"referenceDate,omitempty"`
	LastChangeDateTime string `json:"lastChangeDateTime,omitempty"`
}

// Balances is the response of GET /accounts/{id}/balances/.
type Balances struct {
	Balances []Balance `json:"balances"`
}
