package hicann

// Text forms let the enumerations appear by name in TOML problem files and
// JSON results.

func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s SideVertical) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SideVertical) UnmarshalText(b []byte) error {
	v, err := ParseSideVertical(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (p Parity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Parity) UnmarshalText(b []byte) error {
	v, err := ParseParity(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (m STPMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *STPMode) UnmarshalText(b []byte) error {
	v, err := ParseSTPMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
