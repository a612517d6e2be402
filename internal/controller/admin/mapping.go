package admin

import (
	"github.com/jinzhu/copier"
	"github.com/prepmint/examengine/internal/dto"
	"github.com/prepmint/examengine/internal/model"
)

func breakdownResponse(breakdown *model.ScoreBreakdown) *dto.ScoreBreakdownResponse {
	var resp dto.ScoreBreakdownResponse
	copier.Copy(&resp, breakdown)
	return &resp
}
