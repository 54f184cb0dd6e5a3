package backend

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/josericardo03/sistemas-manuais-back/util"
)

func intPostValue(req *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(req.PostFormValue(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// Excerpt strips markup from rendered HTML and truncates it for listings.
func Excerpt(rendered string, maxRunes int) string {
	return util.Trunc(util.TextOnly(rendered), maxRunes)
}
