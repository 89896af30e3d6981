package store

import "github.com/bygghuset-as/procurement-api/internal/domain"

// Phase names the steps of a document save. The header phase is the durable
// identity: its failure fails the save, while a later phase failing only
// produces a warning. There is no cross-phase rollback.
type Phase string

const (
	PhaseHeader      Phase = "header"
	PhaseItems       Phase = "items"
	PhaseAttachments Phase = "attachments"
)

// PhaseWarning records a non-fatal phase failure. A save that carries
// warnings still succeeded with the committed header data.
type PhaseWarning struct {
	Phase Phase
	Err   error
}

func (w PhaseWarning) DTO() domain.SaveWarningDTO {
	detail := ""
	if w.Err != nil {
		detail = w.Err.Error()
	}
	return domain.SaveWarningDTO{Phase: string(w.Phase), Detail: detail}
}

func warningDTOs(warnings []PhaseWarning) []domain.SaveWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]domain.SaveWarningDTO, len(warnings))
	for i, w := range warnings {
		out[i] = w.DTO()
	}
	return out
}

// PurchaseOrderSaveResult is the outcome of a purchase order save: the merged
// document plus the phase warnings accumulated along the way.
type PurchaseOrderSaveResult struct {
	Document *domain.PurchaseOrder
	Warnings []PhaseWarning
}

// WarningDTOs converts the phase warnings for the HTTP response.
func (r *PurchaseOrderSaveResult) WarningDTOs() []domain.SaveWarningDTO {
	return warningDTOs(r.Warnings)
}

// ChangeOrderSaveResult mirrors PurchaseOrderSaveResult for change orders.
type ChangeOrderSaveResult struct {
	Document *domain.ChangeOrder
	Warnings []PhaseWarning
}

// WarningDTOs converts the phase warnings for the HTTP response.
func (r *ChangeOrderSaveResult) WarningDTOs() []domain.SaveWarningDTO {
	return warningDTOs(r.Warnings)
}
