package store

import "github.com/bygghuset-as/procurement-api/internal/domain"

// Status is the lifecycle of a store's document list.
type Status string

const (
	StatusUnloaded Status = "unloaded"
	StatusLoading  Status = "loading"
	StatusLoaded   Status = "loaded"
	StatusError    Status = "error"
)

// PurchaseOrderState is the explicit state record of the purchase order
// store. Transitions are pure functions returning a new state; the store
// serializes them behind its mutex.
type PurchaseOrderState struct {
	Status     Status
	Err        string
	Documents  []domain.PurchaseOrder
	Pagination *domain.Pagination
	Current    *domain.PurchaseOrder
}

func poLoading(s PurchaseOrderState) PurchaseOrderState {
	s.Status = StatusLoading
	return s
}

func poLoaded(s PurchaseOrderState, docs []domain.PurchaseOrder, p *domain.Pagination) PurchaseOrderState {
	s.Status = StatusLoaded
	s.Err = ""
	s.Documents = docs
	s.Pagination = p
	return s
}

// poFailed records the error but keeps whatever was already loaded, so a
// failed refresh leaves stale-but-available data in place.
func poFailed(s PurchaseOrderState, errMsg string) PurchaseOrderState {
	s.Status = StatusError
	s.Err = errMsg
	return s
}

func poSetCurrent(s PurchaseOrderState, doc *domain.PurchaseOrder) PurchaseOrderState {
	s.Current = doc
	return s
}

// poUpsert replaces the document in the list by uuid, or appends it.
func poUpsert(s PurchaseOrderState, doc domain.PurchaseOrder) PurchaseOrderState {
	docs := make([]domain.PurchaseOrder, len(s.Documents))
	copy(docs, s.Documents)
	for i := range docs {
		if docs[i].UUID == doc.UUID {
			docs[i] = doc
			s.Documents = docs
			return s
		}
	}
	s.Documents = append(docs, doc)
	return s
}

func poRemove(s PurchaseOrderState, uuid string) PurchaseOrderState {
	docs := make([]domain.PurchaseOrder, 0, len(s.Documents))
	for _, d := range s.Documents {
		if d.UUID == uuid {
			continue
		}
		docs = append(docs, d)
	}
	s.Documents = docs
	if s.Current != nil && s.Current.UUID == uuid {
		s.Current = nil
	}
	return s
}

// ChangeOrderState mirrors PurchaseOrderState for change orders.
type ChangeOrderState struct {
	Status     Status
	Err        string
	Documents  []domain.ChangeOrder
	Pagination *domain.Pagination
	Current    *domain.ChangeOrder
}

func coLoading(s ChangeOrderState) ChangeOrderState {
	s.Status = StatusLoading
	return s
}

func coLoaded(s ChangeOrderState, docs []domain.ChangeOrder, p *domain.Pagination) ChangeOrderState {
	s.Status = StatusLoaded
	s.Err = ""
	s.Documents = docs
	s.Pagination = p
	return s
}

func coFailed(s ChangeOrderState, errMsg string) ChangeOrderState {
	s.Status = StatusError
	s.Err = errMsg
	return s
}

func coSetCurrent(s ChangeOrderState, doc *domain.ChangeOrder) ChangeOrderState {
	s.Current = doc
	return s
}

// coUpsert inserts into the visible list only when the document belongs to
// the active corporation; a multi-tenant list must never show another
// corporation's change orders. The current-document reference is managed
// separately and is updated regardless.
func coUpsert(s ChangeOrderState, doc domain.ChangeOrder, activeCorporationUUID string) ChangeOrderState {
	if doc.CorporationUUID != activeCorporationUUID {
		return s
	}
	docs := make([]domain.ChangeOrder, len(s.Documents))
	copy(docs, s.Documents)
	for i := range docs {
		if docs[i].UUID == doc.UUID {
			docs[i] = doc
			s.Documents = docs
			return s
		}
	}
	s.Documents = append(docs, doc)
	return s
}

func coRemove(s ChangeOrderState, uuid string) ChangeOrderState {
	docs := make([]domain.ChangeOrder, 0, len(s.Documents))
	for _, d := range s.Documents {
		if d.UUID == uuid {
			continue
		}
		docs = append(docs, d)
	}
	s.Documents = docs
	if s.Current != nil && s.Current.UUID == uuid {
		s.Current = nil
	}
	return s
}
