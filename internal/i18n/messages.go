package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":               "请求参数错误",
		"error.validation_failed":         "参数校验失败",
		"error.unauthorized":              "未登录或登录已过期",
		"error.forbidden":                 "无权访问",
		"error.not_found":                 "资源不存在",
		"error.internal":                  "服务器内部错误",
		"error.too_many_requests":         "请求过于频繁，请稍后再试",
		"error.rate_limited":              "请求过于频繁，请 %d 秒后再试",
		"error.auth_header_missing":       "缺少认证信息",
		"error.auth_header_invalid":       "认证信息格式错误",
		"error.token_invalid":             "登录凭证无效",
		"error.user_disabled":             "账号已被禁用",
		"error.jwt_secret_missing":        "服务未配置签名密钥",
		"error.rate_limit_unavailable":    "限流服务暂不可用",
		"error.user_id_invalid":           "用户标识无效",
		"error.user_id_type_invalid":      "用户标识类型错误",
		"error.id_invalid":                "ID 无效",
		"error.invalid_credentials":       "邮箱或密码错误",
		"error.password_invalid":          "密码不符合要求",
		"error.request_not_found":         "寄件申请不存在",
		"error.parcel_not_found":          "包裹不存在",
		"error.request_status_invalid":    "申请状态不允许该操作",
		"error.request_not_pending":       "只能删除待审批的申请",
		"error.request_not_approved":      "申请尚未通过审批",
		"error.parcel_status_invalid":     "无效的包裹状态",
		"error.parcel_transition_invalid": "包裹状态不允许该流转",
		"error.cannot_send_to_self":       "不能给自己寄件",
		"error.receiver_is_admin":         "收件人不能是管理员账号",
		"error.parcel_not_delivered":      "包裹尚未送达，无法签收",
		"error.tracking_exhausted":        "运单号生成失败，请重试",
		"error.email_exists":              "该邮箱已注册",
		"error.email_invalid":             "邮箱格式错误",
		"error.policy_invalid":            "权限策略参数无效",
		"error.policy_builtin":            "内置角色的默认策略不可撤销",
		"error.password_min_length":       "密码长度不能少于 %d 位",
		"error.password_max_length":       "密码长度不能超过 %d 位",
		"error.password_require_letter":   "密码需包含字母",
		"error.password_require_number":   "密码需包含数字",

		"parcel.status.pending":    "待取件",
		"parcel.status.picked_up":  "已取件",
		"parcel.status.in_transit": "运输中",
		"parcel.status.delivered":  "已送达",
		"parcel.status.received":   "已签收",
		"parcel.status.cancelled":  "已取消",
		"request.status.pending":   "待审批",
		"request.status.approved":  "已通过",
		"request.status.rejected":  "已拒绝",

		"email.new_request.subject":      "新的寄件申请 #%s",
		"email.new_request.body":         "%s 提交了寄件申请 #%s。\n\n收件人：%s\n物品：%s\n重量：%s kg\n取件地址：%s\n送达地址：%s",
		"email.request_status.subject":   "寄件申请 #%s 状态更新",
		"email.request_status.body":      "您的寄件申请 #%s 状态已更新为：%s。",
		"email.request_rejected.subject": "寄件申请 #%s 未通过",
		"email.request_rejected.body":    "很抱歉，您的寄件申请 #%s 未通过审核。\n\n审核备注：%s",
		"email.parcel_created.subject":   "包裹已创建：%s",
		"email.parcel_created.body":      "运单号 %s 的包裹已创建。\n\n寄件地址：%s\n送达地址：%s\n运费：%s %s\n\n追踪链接：%s",
		"email.parcel_status.subject":    "包裹 %s 状态更新",
		"email.parcel_status.body":       "运单号 %s 的包裹状态已更新为：%s。\n\n当前位置：%s\n\n追踪链接：%s",
		"email.credentials.subject":      "您的账号已创建",
		"email.credentials.body":         "我们已使用 %s 为您创建账号，以便查看寄给您的包裹。\n\n临时密码：%s\n有效期至：%s\n\n请尽快登录并设置新密码。",
	},
	LocaleTW: {
		"error.bad_request":               "請求參數錯誤",
		"error.validation_failed":         "參數校驗失敗",
		"error.unauthorized":              "未登入或登入已過期",
		"error.forbidden":                 "無權存取",
		"error.not_found":                 "資源不存在",
		"error.internal":                  "伺服器內部錯誤",
		"error.too_many_requests":         "請求過於頻繁，請稍後再試",
		"error.rate_limited":              "請求過於頻繁，請 %d 秒後再試",
		"error.invalid_credentials":       "郵箱或密碼錯誤",
		"error.request_not_found":         "寄件申請不存在",
		"error.parcel_not_found":          "包裹不存在",
		"error.request_status_invalid":    "申請狀態不允許該操作",
		"error.request_not_pending":       "只能刪除待審批的申請",
		"error.request_not_approved":      "申請尚未通過審批",
		"error.parcel_status_invalid":     "無效的包裹狀態",
		"error.parcel_transition_invalid": "包裹狀態不允許該流轉",
		"error.cannot_send_to_self":       "不能給自己寄件",
		"error.receiver_is_admin":         "收件人不能是管理員帳號",
		"error.parcel_not_delivered":      "包裹尚未送達，無法簽收",

		"parcel.status.pending":    "待取件",
		"parcel.status.picked_up":  "已取件",
		"parcel.status.in_transit": "運輸中",
		"parcel.status.delivered":  "已送達",
		"parcel.status.received":   "已簽收",
		"parcel.status.cancelled":  "已取消",
		"request.status.pending":   "待審批",
		"request.status.approved":  "已通過",
		"request.status.rejected":  "已拒絕",

		"email.request_status.subject":   "寄件申請 #%s 狀態更新",
		"email.request_status.body":      "您的寄件申請 #%s 狀態已更新為：%s。",
		"email.request_rejected.subject": "寄件申請 #%s 未通過",
		"email.request_rejected.body":    "很抱歉，您的寄件申請 #%s 未通過審核。\n\n審核備註：%s",
		"email.parcel_created.subject":   "包裹已建立：%s",
		"email.parcel_created.body":      "運單號 %s 的包裹已建立。\n\n寄件地址：%s\n送達地址：%s\n運費：%s %s\n\n追蹤連結：%s",
		"email.parcel_status.subject":    "包裹 %s 狀態更新",
		"email.parcel_status.body":       "運單號 %s 的包裹狀態已更新為：%s。\n\n目前位置：%s\n\n追蹤連結：%s",
		"email.credentials.subject":      "您的帳號已建立",
		"email.credentials.body":         "我們已使用 %s 為您建立帳號，以便查看寄給您的包裹。\n\n臨時密碼：%s\n有效期至：%s\n\n請儘快登入並設定新密碼。",
	},
	LocaleEN: {
		"error.bad_request":               "Invalid request",
		"error.validation_failed":         "Validation failed",
		"error.unauthorized":              "Not signed in or session expired",
		"error.forbidden":                 "Access denied",
		"error.not_found":                 "Not found",
		"error.internal":                  "Internal server error",
		"error.too_many_requests":         "Too many requests, please retry later",
		"error.rate_limited":              "Too many requests, retry in %d seconds",
		"error.auth_header_missing":       "Missing authorization header",
		"error.auth_header_invalid":       "Malformed authorization header",
		"error.token_invalid":             "Invalid token",
		"error.user_disabled":             "Account disabled",
		"error.jwt_secret_missing":        "Signing secret not configured",
		"error.rate_limit_unavailable":    "Rate limiter unavailable",
		"error.user_id_invalid":           "Invalid user id",
		"error.user_id_type_invalid":      "Invalid user id type",
		"error.id_invalid":                "Invalid id",
		"error.invalid_credentials":       "Incorrect email or password",
		"error.password_invalid":          "Password does not meet requirements",
		"error.request_not_found":         "Parcel request not found",
		"error.parcel_not_found":          "Parcel not found",
		"error.request_status_invalid":    "Request status does not allow this action",
		"error.request_not_pending":       "Only pending requests can be deleted",
		"error.request_not_approved":      "Request has not been approved",
		"error.parcel_status_invalid":     "Invalid parcel status",
		"error.parcel_transition_invalid": "Parcel status transition not allowed",
		"error.cannot_send_to_self":       "You cannot send a parcel to yourself",
		"error.receiver_is_admin":         "Receiver cannot be an administrator",
		"error.parcel_not_delivered":      "Parcel must be delivered before it can be received",
		"error.tracking_exhausted":        "Could not allocate a tracking number, please retry",
		"error.email_exists":              "Email already registered",
		"error.email_invalid":             "Invalid email address",
		"error.policy_invalid":            "Invalid authorization policy",
		"error.policy_builtin":            "Built-in role policies cannot be revoked",
		"error.password_min_length":       "Password must be at least %d characters",
		"error.password_max_length":       "Password must be at most %d characters",
		"error.password_require_letter":   "Password must contain a letter",
		"error.password_require_number":   "Password must contain a digit",

		"parcel.status.pending":    "Pending",
		"parcel.status.picked_up":  "Picked up",
		"parcel.status.in_transit": "In transit",
		"parcel.status.delivered":  "Delivered",
		"parcel.status.received":   "Received",
		"parcel.status.cancelled":  "Cancelled",
		"request.status.pending":   "Pending",
		"request.status.approved":  "Approved",
		"request.status.rejected":  "Rejected",

		"email.new_request.subject":      "New parcel request #%s",
		"email.new_request.body":         "%s submitted parcel request #%s.\n\nReceiver: %s\nItem: %s\nWeight: %s kg\nPickup: %s\nDestination: %s",
		"email.request_status.subject":   "Parcel request #%s updated",
		"email.request_status.body":      "Your parcel request #%s is now: %s.",
		"email.request_rejected.subject": "Parcel request #%s was rejected",
		"email.request_rejected.body":    "Sorry, your parcel request #%s was rejected.\n\nReviewer notes: %s",
		"email.parcel_created.subject":   "Parcel created: %s",
		"email.parcel_created.body":      "Parcel %s has been created.\n\nPickup: %s\nDestination: %s\nPrice: %s %s\n\nTrack it at: %s",
		"email.parcel_status.subject":    "Parcel %s status update",
		"email.parcel_status.body":       "Parcel %s is now: %s.\n\nCurrent location: %s\n\nTrack it at: %s",
		"email.credentials.subject":      "Your account has been created",
		"email.credentials.body":         "An account was created for %s so you can follow parcels sent to you.\n\nTemporary password: %s\nValid until: %s\n\nPlease sign in and set a new password.",
	},
}
