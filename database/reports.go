package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sixchan/models"
	"sixchan/utils"

	"github.com/jmoiron/sqlx"
)

// GetReportReasons returns the fixed set of report reasons.
func (ds *DatabaseService) GetReportReasons(ctx context.Context) ([]models.ReportReason, error) {
	var reasons []models.ReportReason
	if err := ds.DB.SelectContext(ctx, &reasons, "SELECT id, text FROM report_reasons ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to query report reasons: %w", err)
	}
	return reasons, nil
}

// SubmitReport files an open report against a res. reporterID is nil for
// anonymous reporters.
func (ds *DatabaseService) SubmitReport(ctx context.Context, resID, reasonID int64, detail string, reporterID *int64) (*models.Report, error) {
	report := &models.Report{
		ReasonID:   reasonID,
		Detail:     detail,
		ResID:      resID,
		ReportedBy: reporterID,
		Status:     models.ReportOpen,
		CreatedAt:  ds.now(),
	}
	err := ds.withTx(ctx, "SubmitReport", func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM reses WHERE id = ?"), resID); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("res %d: %w", resID, models.ErrNotFound)
		}
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM report_reasons WHERE id = ?"), reasonID); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("report reason %d: %w", reasonID, models.ErrNotFound)
		}
		err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO reports (reason_id, detail, res_id, reported_by, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			report.ReasonID, report.Detail, report.ResID, report.ReportedBy, report.Status, report.CreatedAt).Scan(&report.ID)
		if err != nil {
			return fmt.Errorf("failed to insert report: %w", translateError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ds.logger.Info("Report submitted", "report_id", report.ID, "res_id", resID, "reason_id", reasonID)
	return report, nil
}

// ResolveReports applies a moderator's decision to a reported res: redaction
// when asked, then every open report on the res is closed. The whole
// resolution is logged and commits as one unit. It returns how many reports
// were closed.
func (ds *DatabaseService) ResolveReports(ctx context.Context, actor *models.UserAccount, resID int64, decision models.Decision) (int, error) {
	if actor == nil || !actor.Role.CanModerate() {
		return 0, fmt.Errorf("resolving reports: %w", models.ErrForbidden)
	}
	if decision != models.DecisionSafe && decision != models.DecisionRedact {
		return 0, models.InvalidArgument("unknown decision %d", decision)
	}

	var closed int
	err := ds.withTx(ctx, "ResolveReports", func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id, tx.Rebind(ds.forUpdate("SELECT id FROM reses WHERE id = ?")), resID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("res %d: %w", resID, models.ErrNotFound)
			}
			return err
		}

		if decision == models.DecisionRedact {
			if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE reses SET inappropriate = ? WHERE id = ?"), true, resID); err != nil {
				return fmt.Errorf("failed to redact res %d: %w", resID, err)
			}
		}

		result, err := tx.ExecContext(ctx, tx.Rebind("UPDATE reports SET status = ? WHERE res_id = ? AND status = ?"),
			models.ReportClosed, resID, models.ReportOpen)
		if err != nil {
			return fmt.Errorf("failed to close reports on res %d: %w", resID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		closed = int(n)

		return LogModAction(ctx, tx, actor.ID, "resolve_"+decision.String(), &resID,
			fmt.Sprintf("closed %d report(s)", closed), ds.now)
	})
	if err != nil {
		return 0, err
	}
	ds.logger.Info("Reports resolved", "res_id", resID, "decision", decision.String(), "closed", closed, "moderator_id", actor.ID)
	return closed, nil
}

// GetReports returns one page of reports, newest first. An empty status
// lists every report.
func (ds *DatabaseService) GetReports(ctx context.Context, status models.ReportStatus, page, perPage int) (models.PageOf[models.ReportRow], error) {
	where, args := "", []interface{}{}
	if status != "" {
		where, args = " WHERE rp.status = ?", append(args, status)
	}

	var total int
	if err := ds.DB.GetContext(ctx, &total, ds.DB.Rebind("SELECT COUNT(*) FROM reports rp"+where), args...); err != nil {
		return models.PageOf[models.ReportRow]{}, err
	}
	b, err := utils.ComputeBounds(page, perPage, total)
	if err != nil {
		return models.PageOf[models.ReportRow]{}, err
	}
	if b.Empty() {
		return utils.EmptyPage[models.ReportRow](), nil
	}

	var rows []models.ReportRow
	err = ds.DB.SelectContext(ctx, &rows, ds.DB.Rebind(`
		SELECT rp.id, rr.text AS reason, rp.detail, rp.status, rp.created_at,
		       r.id AS res_id, r.number AS res_number, r.body AS res_body, r.inappropriate, r.thread_id
		FROM reports rp
		JOIN report_reasons rr ON rr.id = rp.reason_id
		JOIN reses r ON r.id = rp.res_id`+where+`
		ORDER BY rp.created_at DESC, rp.id DESC
		LIMIT ? OFFSET ?`), append(args, b.Limit, b.Offset)...)
	if err != nil {
		return models.PageOf[models.ReportRow]{}, fmt.Errorf("failed to query reports: %w", err)
	}
	return utils.NewPage(b, rows), nil
}

// CountOpenReports returns how many open reports reference a res.
func (ds *DatabaseService) CountOpenReports(ctx context.Context, resID int64) (int, error) {
	var n int
	err := ds.DB.GetContext(ctx, &n, ds.DB.Rebind("SELECT COUNT(*) FROM reports WHERE res_id = ? AND status = ?"), resID, models.ReportOpen)
	return n, err
}
