package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func invalidPayload() error {
	return apperrors.NewInvalidRequest("invalid payload", nil)
}

// parsePaging reads limit and offset. A missing limit falls back to the
// default page size; anything above the maximum is clamped.
func parsePaging(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = parseNonNegative(c.Query("limit"), defaultPageSize, "limit")
	if err != nil {
		return 0, 0, err
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = parseNonNegative(c.Query("offset"), 0, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func parseNonNegative(val string, def int, name string) (int, error) {
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0, apperrors.NewInvalidRequest("invalid "+name, map[string]any{name: val})
	}
	return parsed, nil
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTicketQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	var query dto.TicketListQuery
	for _, s := range splitList(c.Query("status")) {
		query.Statuses = append(query.Statuses, domain.NormalizeStatus(s))
	}
	for _, p := range splitList(c.Query("priority")) {
		query.Priorities = append(query.Priorities, domain.NormalizePriority(p))
	}
	limit, offset, err := parsePaging(c)
	if err != nil {
		return query, err
	}
	query.Limit = limit
	query.Offset = offset
	return query, nil
}
