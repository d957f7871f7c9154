package updatelog

import "github.com/dropDatabas3/bundlekeeper/internal/validation"

// Row es una fila del reporte del update log.
type Row struct {
	Version      string `json:"version"`
	Date         string `json:"date"`
	Errors       int    `json:"errors"`
	Warnings     int    `json:"warnings"`
	InfoMessages int    `json:"info-messages"`
	Folder       string `json:"folder"`
	Skipped      bool   `json:"skipped,omitempty"`
	Invalid      bool   `json:"invalid,omitempty"`
}

// Report es la respuesta del endpoint de update log.
type Report struct {
	Status          string `json:"update-log-status"`
	RetentionPolicy *int   `json:"retention-policy,omitempty"`
	Versions        []Row  `json:"versions,omitempty"`
}

// Report arma el reporte. Con el historial deshabilitado solo informa el estado.
func (s *Store) Report() (Report, error) {
	if s.Status() == StatusDisabled {
		return Report{Status: StatusDisabled}, nil
	}
	cs, err := s.List()
	if err != nil {
		return Report{}, err
	}
	ret := s.retention
	r := Report{Status: StatusEnabled, RetentionPolicy: &ret, Versions: make([]Row, 0, len(cs))}
	for _, c := range cs {
		row := Row{
			Version: c.Version.Version,
			Date:    c.CreatedAt.Format("02 January 2006"),
			Folder:  c.Folder,
			Skipped: c.Skipped,
			Invalid: c.Invalid,
		}
		for _, v := range c.Validations {
			switch v.Level {
			case validation.LevelError:
				row.Errors++
			case validation.LevelWarning:
				row.Warnings++
			default:
				row.InfoMessages++
			}
		}
		r.Versions = append(r.Versions, row)
	}
	return r, nil
}
