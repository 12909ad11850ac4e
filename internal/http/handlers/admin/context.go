package admin

import (
	handlershared "github.com/setwear/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, key, invalidKey, typeInvalidKey)
}

func getStaffID(c *gin.Context) (uint, bool) {
	return getContextUintWithKeys(c, "staff_id", "error.staff_id_invalid", "error.staff_id_type_invalid")
}

func parseIDParam(c *gin.Context) (uint, bool) {
	return handlershared.ParseParamUint(c, "id")
}

func pagination(c *gin.Context) (int, int) {
	return handlershared.NormalizePagination(
		handlershared.QueryInt(c, "page", 1),
		handlershared.QueryInt(c, "page_size", 20),
	)
}
