package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/usecase"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler exposes the call service over REST. Handlers stay thin: bind,
// delegate, map errors.
type Handler struct {
	service *usecase.CallService
}

// NewHandler creates the REST handler set.
func NewHandler(service *usecase.CallService) *Handler {
	return &Handler{service: service}
}

// pageParams turns ?page=&size= into limit/offset. Page numbering is 1-based.
func pageParams(c *gin.Context) (limit, offset int) {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}
	return size, (page - 1) * size
}

func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// --- Call list catalog ---

func (h *Handler) CreateCallList(c *gin.Context) {
	var input usecase.CreateCallListInput
	if !bindJSON(c, &input) {
		return
	}
	list, err := h.service.CreateCallList(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) GetCallList(c *gin.Context) {
	list, err := h.service.GetCallList(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListCallLists(c *gin.Context) {
	limit, offset := pageParams(c)
	filter := storage.CallListFilter{
		Status:  c.Query("status"),
		GroupID: c.Query("groupId"),
		Name:    c.Query("name"),
		Limit:   limit,
		Offset:  offset,
	}
	lists, total, err := h.service.ListCallLists(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope{Items: lists, Total: total})
}

func (h *Handler) UpdateCallList(c *gin.Context) {
	var input usecase.UpdateCallListInput
	if !bindJSON(c, &input) {
		return
	}
	list, err := h.service.UpdateCallList(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) DeleteCallList(c *gin.Context) {
	if err := h.service.DeleteCallList(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Queue ---

func (h *Handler) AddItems(c *gin.Context) {
	var input usecase.AddItemsInput
	if !bindJSON(c, &input) {
		return
	}
	stats, err := h.service.AddItems(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stats)
}

func (h *Handler) ListItems(c *gin.Context) {
	limit, offset := pageParams(c)
	filter := storage.ItemFilter{
		CallListID: c.Param("id"),
		State:      c.Query("state"),
		AssignedTo: c.Query("assignedTo"),
		StudentID:  c.Query("studentId"),
		Limit:      limit,
		Offset:     offset,
	}
	items, total, err := h.service.ListItems(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope{Items: items, Total: total})
}

func (h *Handler) AssignItems(c *gin.Context) {
	var input usecase.AssignInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := h.service.AssignItems(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) UnassignItems(c *gin.Context) {
	var input usecase.AssignInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := h.service.UnassignItems(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.service.GetItem(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	var input usecase.UpdateItemInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.service.UpdateItem(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// --- Call log ledger ---

// completeCallRequest is the completion payload plus the queue item it
// targets.
type completeCallRequest struct {
	ItemID string `json:"item_id"`
	usecase.CompleteCallInput
}

func (h *Handler) CompleteCall(c *gin.Context) {
	var req completeCallRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ItemID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "item_id is required"})
		return
	}
	log, err := h.service.CompleteCall(c.Request.Context(), actorFrom(c), req.ItemID, req.CompleteCallInput)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

func (h *Handler) GetCallLog(c *gin.Context) {
	log, err := h.service.GetCallLog(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

func (h *Handler) ListCallLogs(c *gin.Context) {
	limit, offset := pageParams(c)
	filter := storage.CallLogFilter{
		CallListID: c.Query("callListId"),
		StudentID:  c.Query("studentId"),
		CallerID:   c.Query("callerId"),
		Status:     c.Query("status"),
		Limit:      limit,
		Offset:     offset,
	}
	logs, total, err := h.service.ListCallLogs(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope{Items: logs, Total: total})
}

func (h *Handler) UpdateCallLog(c *gin.Context) {
	var input usecase.UpdateCallLogInput
	if !bindJSON(c, &input) {
		return
	}
	log, err := h.service.UpdateCallLog(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

// --- Follow-ups ---

func (h *Handler) CreateFollowUp(c *gin.Context) {
	var input usecase.CreateFollowUpInput
	if !bindJSON(c, &input) {
		return
	}
	followUp, err := h.service.CreateFollowUp(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, followUp)
}

func (h *Handler) GetFollowUp(c *gin.Context) {
	followUp, err := h.service.GetFollowUp(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, followUp)
}

func (h *Handler) ListFollowUps(c *gin.Context) {
	limit, offset := pageParams(c)
	filter := storage.FollowUpFilter{
		StudentID: c.Query("studentId"),
		Status:    c.Query("status"),
		DueBefore: c.Query("dueBefore"),
		Limit:     limit,
		Offset:    offset,
	}
	followUps, total, err := h.service.ListFollowUps(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope{Items: followUps, Total: total})
}

func (h *Handler) GetCallContext(c *gin.Context) {
	callContext, err := h.service.GetCallContext(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, callContext)
}

func (h *Handler) CompleteFollowUpCall(c *gin.Context) {
	var input usecase.CompleteFollowUpInput
	if !bindJSON(c, &input) {
		return
	}
	log, err := h.service.CompleteFollowUpCall(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

func (h *Handler) CancelFollowUp(c *gin.Context) {
	followUp, err := h.service.CancelFollowUp(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, followUp)
}
