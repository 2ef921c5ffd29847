// internal/handlers/frontdesk_handler.go

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"backend/internal/db"
	"backend/internal/monitor"
	"backend/internal/workflow"
)

// FrontdeskHandler 前台入住/退房向导
type FrontdeskHandler struct {
	checkin  *workflow.CheckinService
	checkout *workflow.CheckoutService
}

func NewFrontdeskHandler(checkin *workflow.CheckinService, checkout *workflow.CheckoutService) *FrontdeskHandler {
	return &FrontdeskHandler{checkin: checkin, checkout: checkout}
}

type RegisterRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	ClientName  string `json:"client_name" binding:"required"`
	GuestCount  int    `json:"guest_count" binding:"required"`
	CheckinDate string `json:"checkin_date" binding:"required"`
}

type SelectRoomRequest struct {
	RoomID int `json:"room_id" binding:"required"`
}

type DepositRequest struct {
	Amount float64 `json:"amount"`
}

type CheckoutRequest struct {
	RoomID int `json:"room_id" binding:"required"`
}

// FlowView 向导流程的对外视图
type FlowView struct {
	FlowID      uint    `json:"flowId"`
	Stage       string  `json:"stage"`
	ClientID    string  `json:"clientId"`
	ClientName  string  `json:"clientName"`
	GuestCount  int     `json:"guestCount"`
	CheckinDate string  `json:"checkinDate"`
	RoomID      int     `json:"roomId,omitempty"`
	OrderID     uint    `json:"orderId,omitempty"`
	Deposit     float64 `json:"deposit"`
	KeyIssued   bool    `json:"keyIssued"`
}

// AccommodationBillView 住宿账单
type AccommodationBillView struct {
	BillID       uint    `json:"billId"`
	RoomFee      float64 `json:"roomFee"`
	Nights       int     `json:"nights"`
	RatePerNight float64 `json:"ratePerNight"`
	Deposit      float64 `json:"deposit"`
	Amount       float64 `json:"amount"`
}

// ACBillView 空调账单
type ACBillView struct {
	BillID      uint    `json:"billId"`
	RoomID      int     `json:"roomId"`
	PeriodStart string  `json:"periodStart"`
	PeriodEnd   string  `json:"periodEnd"`
	TotalFee    float64 `json:"totalFee"`
}

// DetailView 空调服务详单行
type DetailView struct {
	RecordID   uint    `json:"recordId"`
	RoomID     int     `json:"roomId"`
	Speed      string  `json:"speed"`
	StartedAt  string  `json:"startedAt"`
	EndedAt    string  `json:"endedAt"`
	RatePerMin float64 `json:"ratePerMin"`
	FeeValue   float64 `json:"feeValue"`
}

// CheckoutView 退房账单对视图
type CheckoutView struct {
	Stage             string                `json:"stage"`
	AccommodationBill AccommodationBillView `json:"accommodationBill"`
	ACBill            ACBillView            `json:"acBill"`
	DetailRecords     []DetailView          `json:"detailRecords"`
	TotalDue          float64               `json:"totalDue"`
}

// Register POST /frontdesk/checkin/register
func (h *FrontdeskHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	flow, err := h.checkin.RegisterCustomer(req.ClientID, req.ClientName, req.GuestCount, req.CheckinDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// GetFlow GET /frontdesk/checkin/:flowId 断点续办入口
func (h *FrontdeskHandler) GetFlow(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	flow, err := h.checkin.GetFlow(flowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// CheckRoomState POST /frontdesk/checkin/:flowId/check-room-state
func (h *FrontdeskHandler) CheckRoomState(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	flow, rooms, err := h.checkin.CheckRoomState(flowID)
	if err != nil {
		respondError(c, err)
		return
	}
	available := make([]int, 0, len(rooms))
	for _, room := range rooms {
		available = append(available, room.RoomID)
	}
	respondOK(c, gin.H{
		"flow":           flowView(flow),
		"availableRooms": available,
	})
}

// SelectRoom POST /frontdesk/checkin/:flowId/select-room
func (h *FrontdeskHandler) SelectRoom(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	var req SelectRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	flow, err := h.checkin.SelectRoom(flowID, req.RoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// CreateOrder POST /frontdesk/checkin/:flowId/create-order
func (h *FrontdeskHandler) CreateOrder(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	flow, order, err := h.checkin.CreateOrder(flowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"flow":    flowView(flow),
		"orderId": order.ID,
	})
}

// Deposit POST /frontdesk/checkin/:flowId/deposit
func (h *FrontdeskHandler) Deposit(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	flow, err := h.checkin.Deposit(flowID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// SkipDeposit POST /frontdesk/checkin/:flowId/deposit/skip
func (h *FrontdeskHandler) SkipDeposit(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	flow, err := h.checkin.SkipDeposit(flowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// IssueKey POST /frontdesk/checkin/:flowId/issue-key
func (h *FrontdeskHandler) IssueKey(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	flow, err := h.checkin.IssueKey(flowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// SkipIssueKey POST /frontdesk/checkin/:flowId/issue-key/skip
func (h *FrontdeskHandler) SkipIssueKey(c *gin.Context) {
	flowID, ok := parseFlowID(c)
	if !ok {
		return
	}
	flow, err := h.checkin.SkipIssueKey(flowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, flowView(flow))
}

// Checkout POST /frontdesk/checkout 出账,可重复调用回显同一账单对
func (h *FrontdeskHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.checkout.ProcessCheckout(req.RoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, checkoutView(result))
}

// Payment POST /frontdesk/payment 支付,幂等
func (h *FrontdeskHandler) Payment(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.checkout.ProcessPayment(req.RoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, checkoutView(result))
}

// BillsByRoom GET /frontdesk/rooms/:roomId/bills 账单复查
func (h *FrontdeskHandler) BillsByRoom(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("roomId"))
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.checkout.BillsByRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, checkoutView(result))
}

func parseFlowID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("flowId"), 10, 32)
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return uint(id), true
}

func flowView(flow *db.CheckinFlow) FlowView {
	return FlowView{
		FlowID:      flow.ID,
		Stage:       flow.Stage,
		ClientID:    flow.ClientID,
		ClientName:  flow.ClientName,
		GuestCount:  flow.GuestCount,
		CheckinDate: flow.CheckinDate.Format("2006-01-02T15:04:05"),
		RoomID:      flow.RoomID,
		OrderID:     flow.OrderID,
		Deposit:     flow.Deposit,
		KeyIssued:   flow.KeyIssued,
	}
}

// checkoutView 金额在此展示边界舍入到分,核心保持全精度
func checkoutView(result *workflow.CheckoutResult) CheckoutView {
	acc := result.AccommodationBill
	ac := result.ACBill

	details := make([]DetailView, 0, len(result.Details))
	for _, d := range result.Details {
		details = append(details, DetailView{
			RecordID:   d.ID,
			RoomID:     d.RoomID,
			Speed:      d.Speed,
			StartedAt:  d.StartTime.Format("2006-01-02T15:04:05"),
			EndedAt:    d.EndTime.Format("2006-01-02T15:04:05"),
			RatePerMin: d.Rate,
			FeeValue:   monitor.Round2(d.Fee),
		})
	}

	return CheckoutView{
		Stage: result.Flow.Stage,
		AccommodationBill: AccommodationBillView{
			BillID:       acc.ID,
			RoomFee:      monitor.Round2(float64(acc.Nights) * acc.NightlyRate),
			Nights:       acc.Nights,
			RatePerNight: acc.NightlyRate,
			Deposit:      acc.Deposit,
			Amount:       monitor.Round2(acc.Amount),
		},
		ACBill: ACBillView{
			BillID:      ac.ID,
			RoomID:      ac.RoomID,
			PeriodStart: ac.PeriodStart.Format("2006-01-02T15:04:05"),
			PeriodEnd:   ac.PeriodEnd.Format("2006-01-02T15:04:05"),
			TotalFee:    monitor.Round2(ac.Amount),
		},
		DetailRecords: details,
		TotalDue:      monitor.Round2(result.TotalDue),
	}
}
