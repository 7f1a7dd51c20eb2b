package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type listParams struct {
	Query string
	Sort  string
	Desc  bool
}

var sortableFields = map[string]bool{
	"":           true,
	"name":       true,
	"email":      true,
	"created_at": true,
}

// parseListParams reads ?q=&sort=&order= and rejects anything off the whitelist.
func parseListParams(ctx *gin.Context) (listParams, bool) {
	p := listParams{
		Query: strings.TrimSpace(ctx.Query("q")),
		Sort:  strings.ToLower(strings.TrimSpace(ctx.Query("sort"))),
	}

	if len(p.Query) > 100 {
		RespondBadRequest(ctx, "Search query too long", gin.H{"field": "q"})
		return listParams{}, false
	}

	if !sortableFields[p.Sort] {
		RespondBadRequest(ctx, "Invalid sort field", gin.H{"field": "sort", "allowed": []string{"name", "email", "created_at"}})
		return listParams{}, false
	}

	switch strings.ToLower(strings.TrimSpace(ctx.Query("order"))) {
	case "", "asc":
	case "desc":
		p.Desc = true
	default:
		RespondBadRequest(ctx, "Invalid sort order", gin.H{"field": "order", "allowed": []string{"asc", "desc"}})
		return listParams{}, false
	}

	return p, true
}

func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid "+name, gin.H{"field": name})
		return 0, false
	}
	return id, true
}
