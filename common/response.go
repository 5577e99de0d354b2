package common

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// SendJSON 发送JSON响应
func SendJSON(c *app.RequestContext, code int, data interface{}) {
	c.JSON(code, data)
}

// SendSuccess 发送成功响应
func SendSuccess(c *app.RequestContext, data interface{}) {
	c.JSON(consts.StatusOK, data)
}

// SendH 发送utils.H格式的响应
func SendH(c *app.RequestContext, code int, data utils.H) {
	c.JSON(code, data)
}
