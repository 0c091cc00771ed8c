package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

const header = "transaction_id,timestamp,sender_account,receiver_account,amount,transaction_type,merchant_category,location,device_used,is_fraud\n"

func decodeAll(t *testing.T, input string) ([]domain.Transaction, []error) {
	t.Helper()
	var (
		recs []domain.Transaction
		errs []error
	)
	for tx, err := range NewDecoder(strings.NewReader(input)).All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, tx)
	}
	return recs, errs
}

func TestDecodeLabeledLine(t *testing.T) {
	input := header + "T100,2023-08-14 09:12:00,ACC1,ACC2,1500.50,transfer,retail,Recife,mobile,True\n"

	recs, errs := decodeAll(t, input)
	require.Empty(t, errs)
	require.Equal(t, []domain.Transaction{{
		ID:               "T100",
		Timestamp:        "2023-08-14 09:12:00",
		SenderAccount:    "ACC1",
		ReceiverAccount:  "ACC2",
		Amount:           1500.50,
		Type:             "transfer",
		MerchantCategory: "retail",
		Location:         "Recife",
		DeviceUsed:       "mobile",
		IsFraud:          true,
		FraudLabeled:     true,
	}}, recs)
}

func TestDecodeUnlabeledLine(t *testing.T) {
	input := header + "T1,ts,A,B,12,pix,food,Natal,web\n"

	recs, errs := decodeAll(t, input)
	require.Empty(t, errs)
	require.Len(t, recs, 1)
	require.False(t, recs[0].FraudLabeled)
	require.False(t, recs[0].IsFraud)
	require.Equal(t, 12.0, recs[0].Amount)
}

func TestDecodeSkipsMalformedLines(t *testing.T) {
	input := header +
		"T1,ts,A,B,10,pix,food,Natal,web,False\n" +
		"T2,ts,A,B,not-a-number,pix,food,Natal,web,False\n" +
		"T3,ts,A,B\n" +
		",ts,A,B,5,pix,food,Natal,web,False\n" +
		"T4,ts,A,B,NaN,pix,food,Natal,web,False\n" +
		"T5,ts,A,B,20,pix,food,Natal,web,false\n"

	recs, errs := decodeAll(t, input)
	require.Len(t, recs, 2)
	require.Equal(t, "T1", recs[0].ID)
	require.Equal(t, "T5", recs[1].ID)

	require.Len(t, errs, 4)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrMalformedLine)
	}
	require.Contains(t, errs[0].Error(), "line 3")
}

func TestDecodeTruncatesWideFields(t *testing.T) {
	id := strings.Repeat("X", 40)
	input := header + id + ",ts,A,B,1,pix,food,Natal,web\n"

	recs, errs := decodeAll(t, input)
	require.Empty(t, errs)
	require.Len(t, recs, 1)
	require.Equal(t, strings.Repeat("X", domain.MaxIDLen), recs[0].ID)
}

func TestDecodeHeaderOnly(t *testing.T) {
	d := NewDecoder(strings.NewReader(header))
	_, err := d.Decode()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeReportsLineNumbers(t *testing.T) {
	d := NewDecoder(strings.NewReader(header + "T1,ts,A,B,1,pix,food,Natal,web\nT2,ts,A,B,2,pix,food,Natal,web\n"))
	_, err := d.Decode()
	require.NoError(t, err)
	require.Equal(t, 2, d.Line())
	_, err = d.Decode()
	require.NoError(t, err)
	require.Equal(t, 3, d.Line())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestDecodeStopsOnReadError(t *testing.T) {
	_, errs := decodeAll(t, "")
	require.Empty(t, errs)

	var seen []error
	for _, err := range NewDecoder(failingReader{}).All() {
		seen = append(seen, err)
	}
	require.Len(t, seen, 1)
	require.NotErrorIs(t, seen[0], ErrMalformedLine)
}

func TestParseFraudFlag(t *testing.T) {
	require.True(t, ParseFraudFlag("True"))
	require.True(t, ParseFraudFlag("true"))
	require.True(t, ParseFraudFlag("1"))
	require.False(t, ParseFraudFlag("False"))
	require.False(t, ParseFraudFlag(""))
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	in := []domain.Transaction{
		{ID: "T1", Timestamp: "2024-01-01 00:00:00", SenderAccount: "A", ReceiverAccount: "B", Amount: 12.5,
			Type: "pix", MerchantCategory: "food, drinks", Location: "Recife", DeviceUsed: "web", FraudLabeled: true, IsFraud: true},
		{ID: "T2", Amount: -3, DeviceUsed: "mobile", FraudLabeled: true},
	}
	for _, tx := range in {
		require.NoError(t, enc.Encode(tx))
	}
	require.NoError(t, enc.Flush())
	require.True(t, strings.HasPrefix(buf.String(), "transaction_id,"))

	recs, errs := decodeAll(t, buf.String())
	require.Empty(t, errs)
	require.Equal(t, in, recs)
}

func TestEncodeUnlabeledLeavesFraudColumnEmpty(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(domain.Transaction{ID: "T1", Amount: 1}))
	require.NoError(t, enc.Flush())

	recs, errs := decodeAll(t, buf.String())
	require.Empty(t, errs)
	require.Equal(t, []domain.Transaction{{ID: "T1", Amount: 1}}, recs)
}
