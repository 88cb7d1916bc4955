package domain

const (
	RequesterIdentityCtxKey = "parley-requesterIdentity"
	RequesterNameCtxKey     = "parley-requesterName"
)

const (
	RequesterHeader     = "X-Parley-Requester"
	RequesterNameHeader = "X-Parley-Requester-Name"
)
