package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// Quantities cross the wire only as {"quantity_decimal": "...", "uom": "..."}.
// The key names below belonged to older payload shapes that carried raw or
// pre-scaled numbers; any payload still using them is rejected outright
// instead of being silently misread at a different scale.
var legacyQuantityKeys = map[string]struct{}{
	"qty":          {},
	"qty_base":     {},
	"quantity_int": {},
	"quantity":     {},
	"raw_qty":      {},
	"output_qty":   {},
	"qty_required": {},
}

func collectLegacyKeys(node interface{}, found map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if _, bad := legacyQuantityKeys[key]; bad {
				found[key] = struct{}{}
			}
			collectLegacyKeys(child, found)
		}
	case []interface{}:
		for _, child := range v {
			collectLegacyKeys(child, found)
		}
	}
}

// readBodyRejectingLegacyKeys drains the request body, walks the whole JSON
// document for legacy quantity keys, and hands the raw bytes back for
// binding. A true return means the request was already answered.
func readBodyRejectingLegacyKeys(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		bindError(c, err)
		return nil, true
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		// Let the binder report malformed JSON with its own message.
		return body, false
	}

	found := map[string]struct{}{}
	collectLegacyKeys(doc, found)
	if len(found) == 0 {
		return body, false
	}

	keys := make([]string, 0, len(found))
	for key := range found {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	c.JSON(http.StatusBadRequest, apiError{
		Error:   "legacy_quantity_keys_forbidden",
		Message: "quantities must be sent as quantity_decimal with a uom",
		Fields:  gin.H{"keys": keys},
	})
	return nil, true
}
