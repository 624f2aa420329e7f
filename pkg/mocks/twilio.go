package mocks

import (
	"github.com/sfreiberg/gotwilio"
	"github.com/stretchr/testify/mock"
)

// TwilioClientMock is a mock for Twilio
type TwilioClientMock struct {
	mock.Mock
}

// SendSMS mocks sending Twilio SMS
func (m *TwilioClientMock) SendSMS(from, to, body, statusCallback, applicationSid string) (*gotwilio.SmsResponse, *gotwilio.Exception, error) {
	args := m.Called(from, to, body, statusCallback, applicationSid)
	res, _ := args.Get(0).(*gotwilio.SmsResponse)
	exception, _ := args.Get(1).(*gotwilio.Exception)
	return res, exception, args.Error(2)
}
