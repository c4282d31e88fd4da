package services

import "time"

func (s *OTPService) SetClock(now func() time.Time) { s.now = now }

func (s *OTPService) SetCodeGenerator(gen func() (string, error)) { s.generate = gen }

func (s *AuthService) SetClock(now func() time.Time) { s.now = now }

func (s *OrderService) SetClock(now func() time.Time) { s.now = now }
