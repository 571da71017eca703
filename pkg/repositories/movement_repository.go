package repositories

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const movementsTable = "case_movements"

// insertChunk keeps a bulk insert well under the postgres bind parameter limit
const insertChunk = 500

var movementStruct = database.NewStruct(new(models.Movement))

type MovementRepository struct {
	*Repository
	cases *CaseRepository
}

func NewMovementRepository(db database.DB, logger ectologger.Logger, cases *CaseRepository) *MovementRepository {
	return &MovementRepository{
		Repository: NewRepository(db, logger),
		cases:      cases,
	}
}

// ListByCase returns a case's movements, newest first. The caller has
// already checked that the case belongs to the tenant.
func (r *MovementRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.Movement, error) {
	ctx, span := tracing.StartSpan(ctx, "MovementRepository.ListByCase")
	defer span.End()

	sb := movementStruct.SelectFrom(movementsTable)
	sb.Where(sb.Equal("case_id", caseID))
	sb.OrderBy("movement_date").Desc()

	query, args := sb.Build()
	movements := []models.Movement{}
	if err := r.Q(ctx).SelectContext(ctx, &movements, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("case_id", caseID).Error("failed to list movements")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list movements")
	}

	return movements, nil
}

// ReplaceForCase swaps the case's whole movement set for movements and
// stamps the case, all in one transaction. On any failure nothing changes.
func (r *MovementRepository) ReplaceForCase(ctx context.Context, caseID uuid.UUID, movements []models.Movement, stamp models.CaseSyncStamp) (err error) {
	ctx, span := tracing.StartSpan(ctx, "MovementRepository.ReplaceForCase")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to synchronize case")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(txCtx)
		}
	}()

	fail := func(cause error, msg string) error {
		r.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{
			"case_id":        caseID,
			"movement_count": len(movements),
		}).Error(msg)
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to synchronize case")
	}

	del := database.NewDeleteBuilder()
	del.DeleteFrom(movementsTable).Where(del.Equal("case_id", caseID))
	query, args := del.Build()
	if _, err = tx.ExecContext(txCtx, query, args...); err != nil {
		return fail(err, "failed to delete movements")
	}

	for start := 0; start < len(movements); start += insertChunk {
		end := min(start+insertChunk, len(movements))

		ib := database.NewInsertBuilder()
		ib.InsertInto(movementsTable).Cols("id", "case_id", "code", "name", "movement_date", "description", "created_at")
		for i := start; i < end; i++ {
			m := &movements[i]
			if m.ID == uuid.Nil {
				m.ID = uuid.New()
			}
			m.CaseID = caseID
			ib.Values(m.ID, m.CaseID, m.Code, m.Name, m.Date, m.Description, database.Now())
		}

		query, args = ib.Build()
		if _, err = tx.ExecContext(txCtx, query, args...); err != nil {
			return fail(err, "failed to insert movements")
		}
	}

	if err = r.cases.Stamp(txCtx, caseID, stamp); err != nil {
		return fail(errors.Wrap(err, "stamp"), "failed to stamp case")
	}

	if err = tx.Commit(txCtx); err != nil {
		return fail(err, "failed to commit movements")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":        caseID,
		"movement_count": len(movements),
	}).Debug("Replaced case movements")
	return nil
}
