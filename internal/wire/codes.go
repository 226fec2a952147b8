package wire

import "strconv"

// ResponseCode is the status vocabulary shared by precheck responses, receipt
// queries and receipts.
type ResponseCode int32

const (
	OK                            ResponseCode = 0
	InvalidTransaction            ResponseCode = 1
	PayerAccountNotFound          ResponseCode = 2
	InvalidNodeAccount            ResponseCode = 3
	TransactionExpired            ResponseCode = 4
	InvalidTransactionStart       ResponseCode = 5
	InvalidTransactionDuration    ResponseCode = 6
	InvalidSignature              ResponseCode = 7
	MemoTooLong                   ResponseCode = 8
	InsufficientTxFee             ResponseCode = 9
	InsufficientPayerBalance      ResponseCode = 10
	DuplicateTransaction          ResponseCode = 11
	Busy                          ResponseCode = 12
	NotSupported                  ResponseCode = 13
	InvalidAccountID              ResponseCode = 15
	InvalidTransactionID          ResponseCode = 17
	ReceiptNotFound               ResponseCode = 18
	Unknown                       ResponseCode = 21
	Success                       ResponseCode = 22
	FailInvalid                   ResponseCode = 23
	FailFee                       ResponseCode = 24
	KeyRequired                   ResponseCode = 26
	BadEncoding                   ResponseCode = 27
	InsufficientAccountBalance    ResponseCode = 28

	AccountRepeatedInAccountAmounts ResponseCode = 31
	InvalidAccountAmounts           ResponseCode = 32

	PlatformTransactionNotCreated ResponseCode = 41
	TransactionOversize           ResponseCode = 54
	PlatformNotActive             ResponseCode = 97
	InvalidTopicID                ResponseCode = 150
	InvalidTopicMessage           ResponseCode = 153
	MessageSizeTooLarge           ResponseCode = 158
	InvalidChunkNumber            ResponseCode = 162
	InvalidChunkTransactionID     ResponseCode = 163
	InvalidScheduleID             ResponseCode = 201
	ScheduleIsImmutable           ResponseCode = 202
	NoNewValidSignatures          ResponseCode = 208
)

var responseCodeNames = map[ResponseCode]string{
	OK:                              "OK",
	InvalidTransaction:              "INVALID_TRANSACTION",
	PayerAccountNotFound:            "PAYER_ACCOUNT_NOT_FOUND",
	InvalidNodeAccount:              "INVALID_NODE_ACCOUNT",
	TransactionExpired:              "TRANSACTION_EXPIRED",
	InvalidTransactionStart:         "INVALID_TRANSACTION_START",
	InvalidTransactionDuration:      "INVALID_TRANSACTION_DURATION",
	InvalidSignature:                "INVALID_SIGNATURE",
	MemoTooLong:                     "MEMO_TOO_LONG",
	InsufficientTxFee:               "INSUFFICIENT_TX_FEE",
	InsufficientPayerBalance:        "INSUFFICIENT_PAYER_BALANCE",
	DuplicateTransaction:            "DUPLICATE_TRANSACTION",
	Busy:                            "BUSY",
	NotSupported:                    "NOT_SUPPORTED",
	InvalidAccountID:                "INVALID_ACCOUNT_ID",
	InvalidTransactionID:            "INVALID_TRANSACTION_ID",
	ReceiptNotFound:                 "RECEIPT_NOT_FOUND",
	Unknown:                         "UNKNOWN",
	Success:                         "SUCCESS",
	FailInvalid:                     "FAIL_INVALID",
	FailFee:                         "FAIL_FEE",
	KeyRequired:                     "KEY_REQUIRED",
	BadEncoding:                     "BAD_ENCODING",
	InsufficientAccountBalance:      "INSUFFICIENT_ACCOUNT_BALANCE",
	AccountRepeatedInAccountAmounts: "ACCOUNT_REPEATED_IN_ACCOUNT_AMOUNTS",
	InvalidAccountAmounts:           "INVALID_ACCOUNT_AMOUNTS",
	PlatformTransactionNotCreated:   "PLATFORM_TRANSACTION_NOT_CREATED",
	TransactionOversize:             "TRANSACTION_OVERSIZE",
	PlatformNotActive:               "PLATFORM_NOT_ACTIVE",
	InvalidTopicID:                  "INVALID_TOPIC_ID",
	InvalidTopicMessage:             "INVALID_TOPIC_MESSAGE",
	MessageSizeTooLarge:             "MESSAGE_SIZE_TOO_LARGE",
	InvalidChunkNumber:              "INVALID_CHUNK_NUMBER",
	InvalidChunkTransactionID:       "INVALID_CHUNK_TRANSACTION_ID",
	InvalidScheduleID:               "INVALID_SCHEDULE_ID",
	ScheduleIsImmutable:             "SCHEDULE_IS_IMMUTABLE",
	NoNewValidSignatures:            "NO_NEW_VALID_SIGNATURES",
}

func (c ResponseCode) String() string {
	if name, ok := responseCodeNames[c]; ok {
		return name
	}
	return "RESPONSE_CODE_" + strconv.FormatInt(int64(c), 10)
}
