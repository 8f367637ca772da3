package handlers

// maxBodyBytes caps every JSON request body
const maxBodyBytes = 1 << 20

// User-facing messages
const (
	MsgMissingFields        = "필수 정보가 누락되었습니다."
	MsgNameAndPhoneRequired = "이름과 전화번호를 입력해주세요."
	MsgRegionAndReason      = "지역과 지원동기를 선택해주세요."
	MsgInvalidRequest       = "잘못된 요청입니다."
	MsgAlreadyCompleted     = "이미 온라인 실습을 완료하셨습니다."
	MsgUserBlocked          = "접근이 차단된 사용자입니다."
	MsgUserNotFound         = "사용자를 찾을 수 없습니다."
	MsgChapterNotFound      = "챕터를 찾을 수 없습니다."
	MsgQuestionNotFound     = "문제를 찾을 수 없습니다."
	MsgNoQuestions          = "문제가 없습니다."
	MsgQuizNotPassed        = "퀴즈를 모두 맞혀야 챕터를 완료할 수 있습니다."
	MsgVideoNotWatched      = "영상 시청을 완료해야 퀴즈를 풀 수 있습니다."
	MsgIncomplete           = "아직 완료하지 않은 챕터가 있습니다."
	MsgInvalidCredentials   = "아이디 또는 비밀번호가 일치하지 않습니다."
	MsgAdminNotConfigured   = "관리자 계정이 설정되지 않았습니다."
	MsgUnauthorized         = "로그인이 필요합니다."
	MsgInvalidCSRF          = "요청을 확인할 수 없습니다. 다시 로그인해주세요."
	MsgTooManyRequests      = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
	MsgInternalServerError  = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	MsgNotReady             = "서버를 준비하고 있습니다."

	MsgChapterCompleted = "챕터를 완료했습니다."
	MsgCourseCompleted  = "온라인 실습을 완료했습니다."
	MsgUserCompleted    = "사용자가 완료 처리되었습니다."
	MsgLoggedOut        = "로그아웃되었습니다."
)
