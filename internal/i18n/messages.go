package i18n

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.bad_request":                 "请求参数错误",
		"error.unauthorized":                "未授权",
		"error.forbidden":                   "无权访问",
		"error.not_found":                   "资源不存在",
		"error.internal_error":              "服务器内部错误",
		"error.too_many_requests":           "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable":      "限流服务暂不可用",
		"error.admin_token_invalid":         "登录已失效，请重新登录",
		"error.permission_denied":           "权限不足",
		"error.table_not_found":             "餐桌不存在或已停用",
		"error.token_invalid_format":        "二维码令牌格式错误",
		"error.token_invalid_payload":       "二维码令牌数据异常",
		"error.token_gone":                  "二维码已失效，请重新扫码",
		"error.token_ip_mismatch":           "请在扫码的设备上打开链接",
		"error.token_used":                  "二维码已被使用",
		"error.table_session_required":      "请先扫描桌上的二维码",
		"error.table_session_expired":       "桌台会话已过期，请重新扫码",
		"error.table_session_invalid":       "桌台会话无效，请重新扫码",
		"error.table_session_ip_mismatch":   "网络环境发生变化，请重新扫码",
		"error.table_session_mismatch":      "当前会话不属于该餐桌",
		"error.cart_table_required":         "缺少餐桌编号",
		"error.cart_item_invalid":           "商品信息不完整",
		"error.cart_quantity_invalid":       "数量必须为非负整数",
		"error.cart_item_not_found":         "购物车中没有该商品",
		"error.cart_missing":                "购物车不存在",
		"error.table_static_id_exists":      "桌贴编号已存在",
		"error.session_stats_hours_invalid": "统计时长参数错误",
		"error.authz_policy_invalid":        "权限策略只能作用于后台接口且必须指定动作",
	},
	LocaleEnUS: {
		"error.bad_request":                 "Invalid request",
		"error.unauthorized":                "Unauthorized",
		"error.forbidden":                   "Forbidden",
		"error.not_found":                   "Not found",
		"error.internal_error":              "Internal server error",
		"error.too_many_requests":           "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":      "Rate limiter unavailable",
		"error.admin_token_invalid":         "Login expired, please sign in again",
		"error.permission_denied":           "Permission denied",
		"error.table_not_found":             "Table not found or inactive",
		"error.token_invalid_format":        "Invalid QR token format",
		"error.token_invalid_payload":       "QR token data is invalid",
		"error.token_gone":                  "QR code expired, please scan again",
		"error.token_ip_mismatch":           "Open the link on the device that scanned the code",
		"error.token_used":                  "QR code already used",
		"error.table_session_required":      "Please scan the QR code on your table",
		"error.table_session_expired":       "Table session expired, please scan again",
		"error.table_session_invalid":       "Table session invalid, please scan again",
		"error.table_session_ip_mismatch":   "Network changed, please scan again",
		"error.table_session_mismatch":      "This session belongs to another table",
		"error.cart_table_required":         "Table id is required",
		"error.cart_item_invalid":           "Missing or invalid required fields: productId, quantity, unitPrice",
		"error.cart_quantity_invalid":       "Quantity must be a non-negative integer",
		"error.cart_item_not_found":         "Item not found in cart",
		"error.cart_missing":                "Cart not found for table",
		"error.table_static_id_exists":      "Table static id already exists",
		"error.session_stats_hours_invalid": "Invalid hours parameter",
		"error.authz_policy_invalid":        "Policy must target an /admin route with an action",
	},
	LocaleFaIR: {
		"error.bad_request":                 "درخواست نامعتبر است",
		"error.unauthorized":                "دسترسی غیرمجاز",
		"error.forbidden":                   "دسترسی ممنوع است",
		"error.not_found":                   "یافت نشد",
		"error.internal_error":              "خطای داخلی سرور",
		"error.too_many_requests":           "درخواست‌ها بیش از حد است، %d ثانیه دیگر تلاش کنید",
		"error.rate_limit_unavailable":      "سرویس محدودسازی در دسترس نیست",
		"error.admin_token_invalid":         "نشست منقضی شده است، دوباره وارد شوید",
		"error.permission_denied":           "اجازه دسترسی ندارید",
		"error.table_not_found":             "میز یافت نشد یا غیرفعال است",
		"error.token_invalid_format":        "قالب کد QR نامعتبر است",
		"error.token_invalid_payload":       "اطلاعات کد QR نامعتبر است",
		"error.token_gone":                  "کد QR منقضی شده است، دوباره اسکن کنید",
		"error.token_ip_mismatch":           "لینک را روی همان دستگاهی که کد را اسکن کرده باز کنید",
		"error.token_used":                  "این کد QR قبلاً استفاده شده است",
		"error.table_session_required":      "لطفاً کد QR روی میز را اسکن کنید",
		"error.table_session_expired":       "نشست میز منقضی شده است، دوباره اسکن کنید",
		"error.table_session_invalid":       "نشست میز نامعتبر است، دوباره اسکن کنید",
		"error.table_session_ip_mismatch":   "شبکه تغییر کرده است، دوباره اسکن کنید",
		"error.table_session_mismatch":      "این نشست متعلق به میز دیگری است",
		"error.cart_table_required":         "شناسه میز الزامی است",
		"error.cart_item_invalid":           "اطلاعات محصول ناقص است",
		"error.cart_quantity_invalid":       "تعداد باید عدد صحیح نامنفی باشد",
		"error.cart_item_not_found":         "این محصول در سبد نیست",
		"error.cart_missing":                "سبد خرید میز یافت نشد",
		"error.table_static_id_exists":      "شناسه میز تکراری است",
		"error.session_stats_hours_invalid": "پارامتر ساعت نامعتبر است",
		"error.authz_policy_invalid":        "سیاست باید روی مسیر /admin و با یک عملیات تعریف شود",
	},
}
