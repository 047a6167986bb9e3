package handlers

import (
	"net/http"

	"ckg-backend/pkg/common"
	pkgerrors "ckg-backend/pkg/errors"

	"go.uber.org/zap"
)

// respondError maps an application error onto the wire format. Unknown
// errors are masked as internal.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("type", string(appErr.Type)), zap.Error(err))
		}
		common.RespondErrorWithDetails(w, status, string(appErr.Type), appErr.Message, appErr.Details)
		return
	}

	logger.Error("request failed", zap.Error(err))
	common.RespondError(w, http.StatusInternalServerError, string(pkgerrors.ErrorTypeInternal), "internal error")
}
