package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const casePartsTable = "case_parts"

var casePartStruct = database.NewStruct(new(models.CasePart))

// CasePartRepository handles the parties of a case. Callers resolve the case
// through CaseRepository first so tenant scoping happens there.
type CasePartRepository struct {
	*Repository
}

func NewCasePartRepository(db database.DB, logger ectologger.Logger) *CasePartRepository {
	return &CasePartRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *CasePartRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.CasePart, error) {
	ctx, span := tracing.StartSpan(ctx, "CasePartRepository.ListByCase")
	defer span.End()

	sb := casePartStruct.SelectFrom(casePartsTable)
	sb.Where(sb.Equal("case_id", caseID))
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	parts := []models.CasePart{}
	if err := r.Q(ctx).SelectContext(ctx, &parts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("case_id", caseID).Error("failed to list case parts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list case parts")
	}

	return parts, nil
}

func (r *CasePartRepository) Create(ctx context.Context, part *models.CasePart) error {
	ctx, span := tracing.StartSpan(ctx, "CasePartRepository.Create")
	defer span.End()

	if part.ID == uuid.Nil {
		part.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(casePartsTable).
		Cols("id", "case_id", "type", "name", "cpf_cnpj", "phone", "address", "email", "created_at", "updated_at").
		Values(part.ID, part.CaseID, part.Type, part.Name, part.CpfCnpj, part.Phone, part.Address, part.Email,
			database.Now(), database.Now()).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	if err := r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&part.CreatedAt, &part.UpdatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"case_id": part.CaseID,
			"part_id": part.ID,
		}).Error("failed to create case part")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create case part")
	}

	return nil
}

func (r *CasePartRepository) Update(ctx context.Context, part *models.CasePart) error {
	ctx, span := tracing.StartSpan(ctx, "CasePartRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(casePartsTable).
		Set(
			ub.Assign("type", part.Type),
			ub.Assign("name", part.Name),
			ub.Assign("cpf_cnpj", part.CpfCnpj),
			ub.Assign("phone", part.Phone),
			ub.Assign("address", part.Address),
			ub.Assign("email", part.Email),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("case_id", part.CaseID), ub.Equal("id", part.ID))
	ub.SQL("RETURNING created_at, updated_at")

	query, args := ub.Build()
	err := r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&part.CreatedAt, &part.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Parte não encontrada")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("part_id", part.ID).Error("failed to update case part")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update case part")
	}

	return nil
}

func (r *CasePartRepository) Delete(ctx context.Context, caseID, partID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "CasePartRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(casePartsTable).Where(db.Equal("case_id", caseID), db.Equal("id", partID))

	query, args := db.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("part_id", partID).Error("failed to delete case part")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete case part")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete case part")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Parte não encontrada")
	}

	return nil
}
