package store

// Namespace layout. Medicines and requests are partitioned per pharmacy;
// the request index maps a request id to its owning pharmacy so lookups by
// id alone do not have to scan every pharmacy's requests.
const (
	NamespaceUsers        = "users"
	NamespaceProfiles     = "profiles"
	NamespaceRequestIndex = "requests_index"

	MedicinesPrefix = "medicines/"
	RequestsPrefix  = "requests/"
)

func MedicinesNamespace(pharmacyID string) string {
	return MedicinesPrefix + pharmacyID
}

func RequestsNamespace(pharmacyID string) string {
	return RequestsPrefix + pharmacyID
}
