package domain

// PharmacyProfile holds the contact details a pharmacy maintains about
// itself. Restock requests snapshot these fields at submission time, so
// later profile edits never change past requests.
type PharmacyProfile struct {
	PharmacyName string `json:"pharmacy_name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Phone        string `json:"phone"`
}
