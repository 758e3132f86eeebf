package v1

import (
	"net/http"
	"strconv"

	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgCreateFailed    = "An error occurred while creating the prescription."
	msgFileNotFound    = "Prescription file not found:"
	msgUpdateFailed    = "Error updating prescription."
	msgFetchFailed     = "Error fetching prescription."
	msgFetchAllFailed  = "Error fetching prescriptions."
	msgBadDateRequest  = "Invalid date format or request."
	msgNoneForUserDate = "No prescriptions found for the given user and date."
	msgDeleted         = "Prescription deleted successfully."
	msgDeleteFailed    = "Error deleting prescription."
	msgNoneFound       = "No prescriptions found."
	msgInvalidBody     = "Invalid request body."
)

type PrescriptionHandler struct {
	svc *service.PrescriptionService
	log *zap.Logger
}

func NewPrescriptionHandler(svc *service.PrescriptionService, log *zap.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{svc: svc, log: log.Named("prescription_handler")}
}

func (h *PrescriptionHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/post", h.Create)
	rg.GET("", h.GetAll)
	rg.GET("/", h.GetAll)
	rg.GET("/user/:userId/date/:date", h.GetByUserAndDate)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/detail", h.GetDetail)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *PrescriptionHandler) Create(c *gin.Context) {
	h.log.Info("create prescription requested")

	p, ok := h.bindPrescription(c)
	if !ok {
		return
	}

	created, err := h.svc.Create(c.Request.Context(), p)
	if err != nil {
		h.log.Error("create prescription failed", zap.Error(err))
		switch service.KindOf(err) {
		case service.KindStorage:
			respondError(c, http.StatusFailedDependency, msgFileNotFound, err.Error())
		case service.KindInternal, service.KindInvalid, service.KindNotFound:
			respondError(c, http.StatusInternalServerError, msgCreateFailed, err.Error())
		}
		return
	}

	h.log.Info("prescription created",
		zap.Int64("prescription_id", created.ID),
		zap.Int64("user_id", created.UserID),
		zap.Int64("patient_id", created.PatientID),
	)
	respondCreated(c, toResponse(created))
}

func (h *PrescriptionHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.log.Info("update prescription requested", zap.Int64("prescription_id", id))

	p, ok := h.bindPrescription(c)
	if !ok {
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), id, p)
	if err != nil {
		h.log.Error("update prescription failed", zap.Int64("prescription_id", id), zap.Error(err))
		switch service.KindOf(err) {
		case service.KindNotFound:
			respondError(c, http.StatusNotFound, err.Error(), "")
		case service.KindStorage:
			respondError(c, http.StatusFailedDependency, msgFileNotFound, err.Error())
		case service.KindInternal, service.KindInvalid:
			respondError(c, http.StatusInternalServerError, msgUpdateFailed, err.Error())
		}
		return
	}

	h.log.Info("prescription updated", zap.Int64("prescription_id", id))
	respondOK(c, toResponse(updated))
}

func (h *PrescriptionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.log.Info("get prescription requested", zap.Int64("prescription_id", id))

	p, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("get prescription failed", zap.Int64("prescription_id", id), zap.Error(err))
		switch service.KindOf(err) {
		case service.KindNotFound:
			respondError(c, http.StatusNotFound, err.Error(), "")
		case service.KindInternal, service.KindInvalid, service.KindStorage:
			respondError(c, http.StatusInternalServerError, msgFetchFailed, err.Error())
		}
		return
	}

	h.log.Info("prescription fetched", zap.Int64("prescription_id", id))
	respondOK(c, toResponse(p))
}

// GetByUserAndDate reports every failure as bad input; an empty match is 204.
func (h *PrescriptionHandler) GetByUserAndDate(c *gin.Context) {
	rawUser, rawDate := c.Param("userId"), c.Param("date")
	h.log.Info("prescriptions by user and date requested",
		zap.String("user_id", rawUser),
		zap.String("date", rawDate),
	)

	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		h.log.Warn("invalid user id", zap.String("user_id", rawUser), zap.Error(err))
		respondError(c, http.StatusBadRequest, msgBadDateRequest, err.Error())
		return
	}
	date, err := prescription.ParseDate(rawDate)
	if err != nil {
		h.log.Warn("invalid date", zap.String("date", rawDate), zap.Error(err))
		respondError(c, http.StatusBadRequest, msgBadDateRequest, err.Error())
		return
	}

	items, err := h.svc.GetByUserAndDate(c.Request.Context(), userID, date)
	if err != nil {
		h.log.Error("prescriptions by user and date failed", zap.Int64("user_id", userID), zap.Error(err))
		respondError(c, http.StatusBadRequest, msgBadDateRequest, err.Error())
		return
	}

	if len(items) == 0 {
		h.log.Info(msgNoneForUserDate, zap.Int64("user_id", userID), zap.String("date", rawDate))
		respondError(c, http.StatusNoContent, msgNoneForUserDate, "")
		return
	}

	h.log.Info("prescriptions by user and date fetched",
		zap.Int64("user_id", userID),
		zap.String("date", rawDate),
		zap.Int("count", len(items)),
	)
	respondOK(c, toResponses(items))
}

func (h *PrescriptionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.log.Info("delete prescription requested", zap.Int64("prescription_id", id))

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.log.Error("delete prescription failed", zap.Int64("prescription_id", id), zap.Error(err))
		switch service.KindOf(err) {
		case service.KindNotFound:
			respondError(c, http.StatusNotFound, err.Error(), "")
		case service.KindInternal, service.KindInvalid, service.KindStorage:
			respondError(c, http.StatusInternalServerError, msgDeleteFailed, err.Error())
		}
		return
	}

	h.log.Info("prescription deleted", zap.Int64("prescription_id", id))
	respondOK(c, MessageResponse{Message: msgDeleted})
}

func (h *PrescriptionHandler) GetAll(c *gin.Context) {
	h.log.Info("all prescriptions requested")

	items, err := h.svc.GetAll(c.Request.Context())
	if err != nil {
		h.log.Error("list prescriptions failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, msgFetchAllFailed, err.Error())
		return
	}

	if len(items) == 0 {
		h.log.Info(msgNoneFound)
		respondError(c, http.StatusNoContent, msgNoneFound, "")
		return
	}

	h.log.Info("all prescriptions fetched", zap.Int("count", len(items)))
	respondOK(c, toResponses(items))
}

func (h *PrescriptionHandler) GetDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.log.Info("prescription detail requested", zap.Int64("prescription_id", id))

	d, err := h.svc.GetDetail(c.Request.Context(), id)
	if err != nil {
		h.log.Error("prescription detail failed", zap.Int64("prescription_id", id), zap.Error(err))
		switch service.KindOf(err) {
		case service.KindNotFound:
			respondError(c, http.StatusNotFound, err.Error(), "")
		case service.KindInternal, service.KindInvalid, service.KindStorage:
			respondError(c, http.StatusInternalServerError, msgFetchFailed, err.Error())
		}
		return
	}

	h.log.Info("prescription detail fetched", zap.Int64("prescription_id", id))
	respondOK(c, toDetailResponse(d))
}

func (h *PrescriptionHandler) bindPrescription(c *gin.Context) (*prescription.Prescription, bool) {
	var req PrescriptionRequest
	if !bindJSON(c, &req) {
		h.log.Warn("malformed prescription body")
		return nil, false
	}
	p, err := req.toDomain()
	if err != nil {
		h.log.Warn("malformed prescription body", zap.Error(err))
		respondError(c, http.StatusBadRequest, msgInvalidBody, err.Error())
		return nil, false
	}
	return p, true
}
