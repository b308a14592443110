package xerrors

var (
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "", nil)
	// ErrInvalidConfig 配置错误。
	ErrInvalidConfig = New(ErrInvalidArg, 400002, "invalid config", "", nil)
	// ErrInvalidRoute 航线不满足不变量（经停数、重复机场、起降相同等）。
	ErrInvalidRoute = New(ErrInvalidArg, 400003, "invalid route", "", nil)
	// ErrMalformedRecord 文本记录无法解析。
	ErrMalformedRecord = New(ErrInvalidArg, 400004, "malformed record", "", nil)
	// ErrUnknownStrategy 未知的经停排序策略。
	ErrUnknownStrategy = New(ErrInvalidArg, 400005, "unknown reorder strategy", "", nil)
	// ErrUnknownAirport 机场代码不在机场表中。
	ErrUnknownAirport = New(ErrNotFound, 404001, "unknown airport", "", nil)
	// ErrInsufficientData 缺少计算所需的坐标等数据。
	ErrInsufficientData = New(ErrInsufficient, 422001, "insufficient data", "", nil)
	// ErrCapacityExceeded 乘客数超过机型座位数。
	ErrCapacityExceeded = New(ErrLimitExceeded, 429001, "capacity exceeded", "", nil)
	// ErrTooManyWaypoints 穷举排序的航点数超过上限（阶乘复杂度）。
	ErrTooManyWaypoints = New(ErrLimitExceeded, 429002, "too many waypoints", "", nil)
)
